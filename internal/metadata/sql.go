package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mahirjain10/quicksvg/internal/types"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS uploaded_file_info (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	original_name TEXT NOT NULL,
	file_name     TEXT NOT NULL UNIQUE,
	path          TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	size          INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'UPLOADED',
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
)`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS uploaded_file_info (
	id            BIGSERIAL PRIMARY KEY,
	original_name TEXT NOT NULL,
	file_name     TEXT NOT NULL UNIQUE,
	path          TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	size          BIGINT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'UPLOADED',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

// SQLRecorder stores UploadRecords in SQLite or Postgres.
type SQLRecorder struct {
	db     *sql.DB
	driver string
}

func NewSQLRecorder(db *sql.DB, driver string) *SQLRecorder {
	return &SQLRecorder{db: db, driver: driver}
}

// Open connects using a DATABASE_URL of the form "sqlite:<path>" or "postgres://...".
func Open(ctx context.Context, databaseURL string) (*SQLRecorder, error) {
	var driver, dsn string
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		driver, dsn = DriverSQLite, strings.TrimPrefix(databaseURL, "sqlite:")
	case strings.HasPrefix(databaseURL, "postgres"):
		driver, dsn = DriverPostgres, databaseURL
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single connection keeps ":memory:" databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQLRecorder(db, driver), nil
}

func (r *SQLRecorder) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate uploaded_file_info: %w", err)
	}
	return nil
}

func (r *SQLRecorder) RecordUpload(ctx context.Context, file *types.StoredFile) error {
	now := time.Now().UTC()
	query := r.rebind(`
		INSERT INTO uploaded_file_info (original_name, file_name, path, mime_type, size, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		file.OriginalName, file.FileName, file.Path, file.MimeType, file.Size,
		types.UPLOADED, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert upload record %s: %w", file.FileName, err)
	}
	return nil
}

func (r *SQLRecorder) MarkConverted(ctx context.Context, fileName string) error {
	query := r.rebind(`UPDATE uploaded_file_info SET status = ?, updated_at = ? WHERE file_name = ?`)
	res, err := r.db.ExecContext(ctx, query, types.CONVERTED, time.Now().UTC(), fileName)
	if err != nil {
		return fmt.Errorf("update status for %s: %w", fileName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status for %s: %w", fileName, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fileName)
	}
	return nil
}

func (r *SQLRecorder) Get(ctx context.Context, fileName string) (*types.UploadRecord, error) {
	query := r.rebind(`
		SELECT id, original_name, file_name, path, mime_type, size, status, created_at, updated_at
		FROM uploaded_file_info WHERE file_name = ?
	`)
	rec := &types.UploadRecord{}
	err := r.db.QueryRowContext(ctx, query, fileName).Scan(
		&rec.ID, &rec.OriginalName, &rec.FileName, &rec.Path, &rec.MimeType,
		&rec.Size, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload record %s: %w", fileName, err)
	}
	return rec, nil
}

func (r *SQLRecorder) Close() error {
	return r.db.Close()
}

// rebind rewrites "?" placeholders to "$n" for Postgres.
func (r *SQLRecorder) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
