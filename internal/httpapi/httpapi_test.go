package httpapi

import (
	"bytes"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mahirjain10/quicksvg/config"
	"github.com/mahirjain10/quicksvg/internal/conversion"
	"github.com/mahirjain10/quicksvg/internal/dimensions"
	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/pipeline"
	"github.com/mahirjain10/quicksvg/internal/storage"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/mahirjain10/quicksvg/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">
  <rect x="10" y="10" width="80" height="80" fill="#3366ff" stroke="#000000" stroke-width="2"/>
  <circle cx="50" cy="50" r="20" fill="#ffcc00"/>
</svg>`

type noopNotifier struct{}

func (noopNotifier) UploadStored(*types.StoredFile) {}
func (noopNotifier) Converted(string)               {}

type testServer struct {
	srv          *httptest.Server
	router       http.Handler
	uploadDir    string
	orchestrator *pipeline.Orchestrator
}

func newTestServer(t *testing.T, maxFileSize int64) *testServer {
	t.Helper()
	logger := observability.Nop()
	uploadDir := t.TempDir()
	publicDir := filepath.Join(t.TempDir(), "images")

	validator := validation.NewValidator(validation.Rules{
		Extensions:  []string{config.SupportedExtension},
		MimeTypes:   []string{config.SupportedMimeType},
		MaxFileSize: maxFileSize,
	})
	orchestrator := pipeline.NewOrchestrator(
		validator,
		storage.NewManager(uploadDir, logger),
		dimensions.NewExtractor(logger),
		conversion.NewConverter(publicDir, "/uploads/images", logger),
		noopNotifier{},
		logger,
	)
	handler := NewUploadHandler(orchestrator, maxFileSize, validator.SizeError(), logger)
	router := NewRouter(RouterConfig{PublicDir: publicDir, PublicPrefix: "/uploads/images"}, handler, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, router: router, uploadDir: uploadDir, orchestrator: orchestrator}
}

func multipartBody(t *testing.T, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func postUpload(t *testing.T, url string, body *bytes.Buffer, contentType string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := &bytes.Buffer{}
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestUpload_EndToEnd(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	body, ct := multipartBody(t, "square.svg", "image/svg+xml", []byte(squareSVG))
	resp, raw := postUpload(t, ts.srv.URL+"/upload", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var got types.UploadResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "square.svg", got.SavedFileInfo.OriginalName)
	assert.Equal(t, "image/svg+xml", got.SavedFileInfo.MimeType)
	assert.Equal(t, int64(len(squareSVG)), got.SavedFileInfo.Size)
	assert.True(t, strings.HasPrefix(got.ConvertedPngDownloadUrl, ts.srv.URL+"/uploads/images/"))
	assert.True(t, strings.HasSuffix(got.ConvertedPngDownloadUrl, "_converted.png"))
	assert.Empty(t, got.ConvertedPngS3Url)

	pngResp, err := http.Get(got.ConvertedPngDownloadUrl)
	require.NoError(t, err)
	defer pngResp.Body.Close()
	require.Equal(t, http.StatusOK, pngResp.StatusCode)

	img, err := png.Decode(pngResp.Body)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	ts.orchestrator.Wait()
	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_ApiPrefix(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	body, ct := multipartBody(t, "square.svg", "image/svg+xml", []byte(squareSVG))
	resp, raw := postUpload(t, ts.srv.URL+"/api/upload", body, ct)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	ts.orchestrator.Wait()
}

func TestUpload_DisallowedMimeType(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	body, ct := multipartBody(t, "a.svg", "text/plain", []byte(squareSVG))
	resp, raw := postUpload(t, ts.srv.URL+"/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Invalid file type. Supported types: image/svg+xml"}`, string(raw))

	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_NoFile(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	resp, raw := postUpload(t, ts.srv.URL+"/upload", bytes.NewBufferString("plain body"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"message":"No file provided"}`, string(raw))
}

func TestUpload_InvalidContent(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	body, ct := multipartBody(t, "a.svg", "image/svg+xml", []byte("<html></html>"))
	resp, raw := postUpload(t, ts.srv.URL+"/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Invalid SVG file content"}`, string(raw))
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, 1024*1024)

	t.Run("within multipart slack", func(t *testing.T) {
		content := []byte(squareSVG + strings.Repeat(" ", 1024*1024))
		body, ct := multipartBody(t, "big.svg", "image/svg+xml", content)
		resp, raw := postUpload(t, ts.srv.URL+"/upload", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"message":"File size exceeds maximum allowed size of 1MB"}`, string(raw))
	})

	t.Run("beyond body limit", func(t *testing.T) {
		content := []byte(squareSVG + strings.Repeat(" ", 3*1024*1024))
		body, ct := multipartBody(t, "huge.svg", "image/svg+xml", content)
		// served in-process: over the wire the server may hang up before the client finishes writing
		req := httptest.NewRequest(http.MethodPost, "http://svg.example/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"File size exceeds maximum allowed size of 1MB"}`, rec.Body.String())
	})

	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_ConversionFailureIs500(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	broken := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><g></svg>`
	body, ct := multipartBody(t, "broken.svg", "image/svg+xml", []byte(broken))
	resp, raw := postUpload(t, ts.srv.URL+"/upload", body, ct)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Failed to convert svg to png"}`, string(raw))

	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed upload is retained for the reaper")
}

func TestHealthAndStatic(t *testing.T) {
	ts := newTestServer(t, 10*1024*1024)

	resp, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.srv.URL + "/uploads/images/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.srv.URL + "/uploads/images/missing_converted.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://svg.example/upload", nil)
	assert.Equal(t, "http://svg.example", requestOrigin(r))

	r.Header.Set("X-Forwarded-Proto", "https, http")
	assert.Equal(t, "https://svg.example", requestOrigin(r))

	r.Header.Set("X-Forwarded-Proto", "HTTPS")
	assert.Equal(t, "https://svg.example", requestOrigin(r))

	r.Header.Set("X-Forwarded-Proto", "evil")
	assert.Equal(t, "http://svg.example", requestOrigin(r))

	tlsReq := httptest.NewRequest(http.MethodPost, "https://svg.example/upload", nil)
	tlsReq.Header.Set("X-Forwarded-Proto", "javascript")
	assert.Equal(t, "https://svg.example", requestOrigin(tlsReq))
}
