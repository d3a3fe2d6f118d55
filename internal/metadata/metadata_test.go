package metadata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SQLRecorder {
	t.Helper()
	r, err := Open(context.Background(), "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func sampleFile() *types.StoredFile {
	return &types.StoredFile{
		FileName:     "logo-1a2b3c4d.svg",
		OriginalName: "logo.svg",
		Path:         "/tmp/uploads/logo-1a2b3c4d.svg",
		Size:         128,
		MimeType:     "image/svg+xml",
	}
}

func TestSQLRecorder_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)
	file := sampleFile()

	require.NoError(t, r.RecordUpload(ctx, file))

	rec, err := r.Get(ctx, file.FileName)
	require.NoError(t, err)
	assert.Equal(t, types.UPLOADED, rec.Status)
	assert.Equal(t, "logo.svg", rec.OriginalName)
	assert.Equal(t, int64(128), rec.Size)
	assert.False(t, rec.CreatedAt.IsZero())

	require.NoError(t, r.MarkConverted(ctx, file.FileName))

	rec, err = r.Get(ctx, file.FileName)
	require.NoError(t, err)
	assert.Equal(t, types.CONVERTED, rec.Status)
	assert.False(t, rec.UpdatedAt.Before(rec.CreatedAt))
}

func TestSQLRecorder_Missing(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	_, err := r.Get(ctx, "nope.svg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.MarkConverted(ctx, "nope.svg"), ErrNotFound)
}

func TestSQLRecorder_DuplicateFileName(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	require.NoError(t, r.RecordUpload(ctx, sampleFile()))
	assert.Error(t, r.RecordUpload(ctx, sampleFile()))
}

func TestOpen_UnsupportedURL(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/db")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := NewSQLRecorder(nil, DriverPostgres)
	assert.Equal(t, "UPDATE t SET a = $1 WHERE b = $2", pg.rebind("UPDATE t SET a = ? WHERE b = ?"))

	lite := NewSQLRecorder(nil, DriverSQLite)
	assert.Equal(t, "WHERE b = ?", lite.rebind("WHERE b = ?"))
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRecorder) RecordUpload(_ context.Context, file *types.StoredFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload:"+file.FileName)
	return f.err
}

func (f *fakeRecorder) MarkConverted(_ context.Context, fileName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "converted:"+fileName)
	return f.err
}

func TestFanout_JoinsErrors(t *testing.T) {
	ok := &fakeRecorder{}
	broken := &fakeRecorder{err: errors.New("broker down")}
	f := Fanout{broken, ok}

	err := f.RecordUpload(context.Background(), sampleFile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, []string{"upload:logo-1a2b3c4d.svg"}, ok.calls)

	assert.NoError(t, Fanout{ok}.MarkConverted(context.Background(), "x.svg"))
}

func TestNotifier_DeliversInOrder(t *testing.T) {
	rec := &fakeRecorder{}
	n := NewNotifier(rec, observability.Nop(), time.Second)

	n.UploadStored(sampleFile())
	n.Converted("logo-1a2b3c4d.svg")
	n.Close()

	assert.Equal(t, []string{"upload:logo-1a2b3c4d.svg", "converted:logo-1a2b3c4d.svg"}, rec.calls)
}

func TestNotifier_SwallowsFailures(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db locked")}
	n := NewNotifier(rec, observability.Nop(), time.Second)

	assert.NotPanics(t, func() {
		n.UploadStored(sampleFile())
		n.Close()
		n.Converted("late.svg")
		n.Close()
	})
	assert.Equal(t, []string{"upload:logo-1a2b3c4d.svg"}, rec.calls)
}

func TestNotifier_NilRecorder(t *testing.T) {
	n := NewNotifier(nil, observability.Nop(), time.Second)
	n.UploadStored(sampleFile())
	n.Close()
}
