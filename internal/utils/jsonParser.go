package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func ParseJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func SerializeJSON(data any) ([]byte, error) {
	value, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize JSON: %w", err)
	}
	return value, nil
}

// WriteJSON serializes v and writes it with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := SerializeJSON(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
