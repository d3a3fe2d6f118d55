// Package metadata records upload and conversion status transitions.
package metadata

import (
	"context"
	"errors"

	"github.com/mahirjain10/quicksvg/internal/types"
)

var ErrNotFound = errors.New("upload record not found")

// Recorder is the two-call contract the pipeline relies on.
type Recorder interface {
	RecordUpload(ctx context.Context, file *types.StoredFile) error
	MarkConverted(ctx context.Context, fileName string) error
}

// Fanout forwards every call to all recorders and joins their errors.
type Fanout []Recorder

func (f Fanout) RecordUpload(ctx context.Context, file *types.StoredFile) error {
	var errs []error
	for _, r := range f {
		if err := r.RecordUpload(ctx, file); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) MarkConverted(ctx context.Context, fileName string) error {
	var errs []error
	for _, r := range f {
		if err := r.MarkConverted(ctx, fileName); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
