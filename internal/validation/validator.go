// Package validation rejects uploads that must never reach storage.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mahirjain10/quicksvg/internal/types"
)

var (
	ErrNoFile           = errors.New("no file provided")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMimeType  = errors.New("invalid file type")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidContent   = errors.New("invalid svg content")
)

// Error carries the human readable reason returned to the client.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

type Rules struct {
	Extensions  []string
	MimeTypes   []string
	MaxFileSize int64
	RootElement string
}

type Validator struct {
	rules    Rules
	openTag  []byte
	closeTag []byte
}

func NewValidator(rules Rules) *Validator {
	if rules.RootElement == "" {
		rules.RootElement = "svg"
	}
	return &Validator{
		rules:    rules,
		openTag:  []byte("<" + rules.RootElement),
		closeTag: []byte("</" + rules.RootElement + ">"),
	}
}

// Validate checks presence, extension, media type, size and root tags in that
// order and stops at the first violation.
func (v *Validator) Validate(req *types.UploadRequest) error {
	if req == nil || (req.OriginalName == "" && len(req.Data) == 0) {
		return &Error{Err: ErrNoFile, Message: "No file provided"}
	}

	ext := strings.ToLower(filepath.Ext(req.OriginalName))
	if ext == "" || !slices.Contains(v.rules.Extensions, ext) {
		return &Error{
			Err:     ErrInvalidExtension,
			Message: fmt.Sprintf("Invalid file extension. Supported extensions: %s", strings.Join(v.rules.Extensions, ", ")),
		}
	}

	if !slices.Contains(v.rules.MimeTypes, req.MimeType) {
		return &Error{
			Err:     ErrInvalidMimeType,
			Message: fmt.Sprintf("Invalid file type. Supported types: %s", strings.Join(v.rules.MimeTypes, ", ")),
		}
	}

	if req.Size > v.rules.MaxFileSize {
		return v.SizeError()
	}

	if !bytes.Contains(req.Data, v.openTag) || !bytes.Contains(req.Data, v.closeTag) {
		return &Error{Err: ErrInvalidContent, Message: "Invalid SVG file content"}
	}
	return nil
}

// SizeError is also used by the HTTP layer when the request body overflows
// before the file can be read in full.
func (v *Validator) SizeError() error {
	return &Error{
		Err:     ErrFileTooLarge,
		Message: fmt.Sprintf("File size exceeds maximum allowed size of %sMB", formatMB(v.rules.MaxFileSize)),
	}
}

func formatMB(size int64) string {
	mb := float64(size) / (1024 * 1024)
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%d", int64(mb))
	}
	return fmt.Sprintf("%.2f", mb)
}
