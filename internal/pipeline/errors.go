package pipeline

import "errors"

type Kind int

const (
	KindClientInput Kind = iota
	KindStorage
	KindConversion
)

func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindStorage:
		return "storage"
	case KindConversion:
		return "conversion"
	default:
		return "unknown"
	}
}

const (
	msgSaveFailed       = "Failed to save file"
	msgConversionFailed = "Failed to convert svg to png"
)

// Error is the only error Process returns. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ClientInput reports whether err should be answered with a 4xx.
func ClientInput(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindClientInput
}
