// Package httpapi exposes the conversion pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/pipeline"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/mahirjain10/quicksvg/internal/utils"
)

const (
	formField = "file"
	// room for multipart boundaries and headers on top of the file itself
	multipartSlack = 1 << 20
)

type Processor interface {
	Process(ctx context.Context, baseURL string, req *types.UploadRequest) (*pipeline.Result, error)
}

// UploadHandler serves POST /upload.
type UploadHandler struct {
	processor   Processor
	maxFileSize int64
	sizeErr     error
	logger      *observability.Logger
}

// NewUploadHandler takes the error to report when the body overflows before
// the file can be read; it should carry the same message the validator uses.
func NewUploadHandler(processor Processor, maxFileSize int64, sizeErr error, logger *observability.Logger) *UploadHandler {
	return &UploadHandler{
		processor:   processor,
		maxFileSize: maxFileSize,
		sizeErr:     sizeErr,
		logger:      logger.WithComponent("http"),
	}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartSlack)

	req, err := h.readUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, &pipeline.Error{Kind: pipeline.KindClientInput, Message: h.sizeErr.Error(), Err: h.sizeErr})
			return
		}
		// anything else means there is no usable file part; the validator says so
		h.logger.Debug().Err(err).Msg("no file part in request")
		req = nil
	}

	result, err := h.processor.Process(r.Context(), requestOrigin(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := utils.WriteJSON(w, http.StatusOK, result.Response()); err != nil {
		h.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (h *UploadHandler) readUpload(r *http.Request) (*types.UploadRequest, error) {
	file, header, err := r.FormFile(formField)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &types.UploadRequest{
		Data:         data,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
	}, nil
}

func (h *UploadHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var pe *pipeline.Error
	if errors.As(err, &pe) {
		message = pe.Message
		if pe.Kind == pipeline.KindClientInput {
			status = http.StatusBadRequest
		}
	} else {
		h.logger.Error().Err(err).Msg("unclassified pipeline error")
	}

	if err := utils.WriteJSON(w, status, types.ErrorResponse{Message: message}); err != nil {
		h.logger.Error().Err(err).Msg("failed to write error response")
	}
}

// requestOrigin rebuilds scheme://host as the client saw it.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	// only the two schemes the download URL can be served over are trusted
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		switch forwarded := strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0])); forwarded {
		case "http", "https":
			scheme = forwarded
		}
	}
	return scheme + "://" + r.Host
}
