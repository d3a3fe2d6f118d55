package utils

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathUtil_CreatesParents(t *testing.T) {
	root := t.TempDir()

	got, err := PathUtil(root, "images/nested/out.png")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "images", "nested", "out.png"), got)
	info, err := os.Stat(filepath.Dir(got))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPathUtil_RejectsTraversal(t *testing.T) {
	root := t.TempDir()

	_, err := PathUtil(root, "../escape.png")
	assert.ErrorIs(t, err, ErrOutsideBase)

	got, err := PathUtil(root, "a/../b.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b.png"), got)
}

func TestImageBufferRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, WriteImageBuffer(path, []byte{1, 2, 3}))

	got, err := ReadImageBuffer(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, err = ReadImageBuffer(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestStatusMessage(t *testing.T) {
	msg := InitStatusMessage(InitStatusData("logo-1a2b3c4d.svg", "logo.svg", types.CONVERTED))

	body, err := SerializeJSON(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"status","data":{"fileName":"logo-1a2b3c4d.svg","originalName":"logo.svg","status":"CONVERTED"}}`, string(body))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, 400, types.ErrorResponse{Message: "bad"}))

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got types.ErrorResponse
	require.NoError(t, ParseJSON(rec.Body.Bytes(), &got))
	assert.Equal(t, "bad", got.Message)
}
