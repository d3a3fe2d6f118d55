package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideBase = errors.New("path escapes base directory")

// PathUtil resolves key under base, refusing keys that climb out of it, and
// creates every missing parent directory.
func PathUtil(base string, key string) (string, error) {
	filePath := filepath.Join(base, key)

	rel, err := filepath.Rel(base, filePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, key)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	return filePath, nil
}
