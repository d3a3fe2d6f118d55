package types

// StatusData represents the inner payload
type StatusData struct {
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName,omitempty"`
	Status       string `json:"status"`
}

// StatusMessage represents the full message envelope
type StatusMessage struct {
	Pattern string     `json:"pattern"`
	Data    StatusData `json:"data"`
}

const UPLOADED = "UPLOADED"
const CONVERTED = "CONVERTED"
