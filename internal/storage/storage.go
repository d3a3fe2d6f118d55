// Package storage owns the upload directory: unique naming, saving accepted
// uploads and removing them once they are no longer needed.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
)

var ErrSave = errors.New("failed to save file")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

type Manager struct {
	uploadDir string
	logger    *observability.Logger
}

func NewManager(uploadDir string, logger *observability.Logger) *Manager {
	return &Manager{uploadDir: uploadDir, logger: logger.WithComponent("storage")}
}

func (m *Manager) UploadDir() string {
	return m.uploadDir
}

// EnsureDirectory creates the upload directory tree. A failure is only logged:
// the first write into a missing directory surfaces it as a storage error.
func (m *Manager) EnsureDirectory() {
	if _, err := os.Stat(m.uploadDir); err == nil {
		return
	}
	if err := os.MkdirAll(m.uploadDir, os.ModePerm); err != nil {
		m.logger.Debug().Err(err).Str("dir", m.uploadDir).Msg("error creating upload directory")
		return
	}
	m.logger.Info().Str("dir", m.uploadDir).Msg("created upload directory")
}

// GenerateUniqueName sanitizes the stem of originalName and appends a short
// random token before the extension, e.g. "my logo.svg" -> "my_logo-1f2e3d4c.svg".
func GenerateUniqueName(originalName string) string {
	stem, ext := originalName, ""
	if idx := strings.LastIndex(originalName, "."); idx >= 0 {
		stem, ext = originalName[:idx], originalName[idx:]
	}

	stem = unsafeChars.ReplaceAllString(stem, "_")
	if stem == "" {
		stem = "file"
	}
	ext = unsafeChars.ReplaceAllString(ext, "_")

	token := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s%s", stem, token, ext)
}

// SaveFile writes the upload under a fresh unique name. The file is created
// exclusively so an existing path is never overwritten.
func (m *Manager) SaveFile(req *types.UploadRequest) (*types.StoredFile, error) {
	fileName := GenerateUniqueName(req.OriginalName)
	filePath, err := filepath.Abs(filepath.Join(m.uploadDir, fileName))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve path: %v", ErrSave, err)
	}

	if err := writeExclusive(filePath, req.Data); err != nil {
		m.logger.Error().Err(err).Str("original_name", req.OriginalName).Msg("error saving file")
		return nil, fmt.Errorf("%w: %v", ErrSave, err)
	}

	m.logger.Info().
		Str("original_name", req.OriginalName).
		Int64("size", req.Size).
		Str("mime_type", req.MimeType).
		Str("path", filePath).
		Msg("svg file saved")

	return &types.StoredFile{
		FileName:     fileName,
		OriginalName: req.OriginalName,
		Path:         filePath,
		Size:         req.Size,
		MimeType:     req.MimeType,
	}, nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Cleanup removes the stored upload if it still exists. It never fails: by the
// time it runs the conversion has already succeeded.
func (m *Manager) Cleanup(file *types.StoredFile) {
	if file == nil {
		return
	}
	if err := os.Remove(file.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		m.logger.Error().Err(err).Str("path", file.Path).Msg("error cleaning up file")
		return
	}
	m.logger.Info().Str("path", file.Path).Msg("cleaned up file")
}
