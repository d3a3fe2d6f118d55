// Package pipeline runs one upload through validate, store, dimension,
// convert and cleanup, in that order.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
)

type Validator interface {
	Validate(req *types.UploadRequest) error
}

type Storage interface {
	SaveFile(req *types.UploadRequest) (*types.StoredFile, error)
	Cleanup(file *types.StoredFile)
}

type DimensionExtractor interface {
	ExtractDimensions(file *types.StoredFile) types.SvgDimensions
}

type Converter interface {
	Convert(baseURL string, sourcePath string, width int, height int) (*types.ConversionResult, error)
}

// Notifier receives status transitions. Both calls must return immediately.
type Notifier interface {
	UploadStored(file *types.StoredFile)
	Converted(fileName string)
}

// Mirror copies a finished PNG somewhere else and returns where it can be fetched.
type Mirror interface {
	MirrorConversion(ctx context.Context, result *types.ConversionResult) (string, error)
}

type Stage string

const (
	StageReceived    Stage = "RECEIVED"
	StageValidated   Stage = "VALIDATED"
	StageStored      Stage = "STORED"
	StageDimensioned Stage = "DIMENSIONED"
	StageConverted   Stage = "CONVERTED"
	StageCleanedUp   Stage = "CLEANED_UP"
	StageResponded   Stage = "RESPONDED"
)

type Result struct {
	StoredFile *types.StoredFile
	Dimensions types.SvgDimensions
	Conversion *types.ConversionResult
	MirrorURL  string
}

// Response shapes the result the way POST /upload returns it.
func (r *Result) Response() *types.UploadResponse {
	return &types.UploadResponse{
		SavedFileInfo:           *r.StoredFile,
		ConvertedPngDownloadUrl: r.Conversion.DownloadURL,
		ConvertedPngS3Url:       r.MirrorURL,
	}
}

type Option func(*Orchestrator)

func WithMirror(m Mirror) Option {
	return func(o *Orchestrator) { o.mirror = m }
}

type Orchestrator struct {
	validator Validator
	storage   Storage
	extractor DimensionExtractor
	converter Converter
	notifier  Notifier
	mirror    Mirror
	logger    *observability.Logger

	cleanups sync.WaitGroup
}

func NewOrchestrator(
	validator Validator,
	storage Storage,
	extractor DimensionExtractor,
	converter Converter,
	notifier Notifier,
	logger *observability.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		validator: validator,
		storage:   storage,
		extractor: extractor,
		converter: converter,
		notifier:  notifier,
		logger:    logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the pipeline for one request. baseURL is the caller's origin
// (scheme://host) used to build the download URL. The request context is only
// read for values: a disconnecting client does not stop the pipeline.
func (o *Orchestrator) Process(ctx context.Context, baseURL string, req *types.UploadRequest) (*Result, error) {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	// 1. Validate
	if err := o.validator.Validate(req); err != nil {
		o.logger.Info().Str("stage", string(StageReceived)).Err(err).Msg("upload rejected")
		return nil, &Error{Kind: KindClientInput, Message: err.Error(), Err: err}
	}

	// 2. Store
	stored, err := o.storage.SaveFile(req)
	if err != nil {
		o.logger.Error().Str("stage", string(StageValidated)).Err(err).Msg("failed to save upload")
		return nil, &Error{Kind: KindStorage, Message: msgSaveFailed, Err: err}
	}
	o.notifier.UploadStored(stored)
	log := o.logger.With("file_name", stored.FileName)

	// 3. Dimensions
	dims := o.extractor.ExtractDimensions(stored)
	log.Debug().Int("width", dims.Width).Int("height", dims.Height).Msg("dimensions resolved")

	// 4. Convert
	result, err := o.converter.Convert(baseURL, stored.Path, dims.Width, dims.Height)
	if err != nil {
		// the upload stays on disk until the reaper's retention window passes
		log.Error().Str("stage", string(StageDimensioned)).Err(err).Msg("conversion failed, upload retained")
		return nil, &Error{Kind: KindConversion, Message: msgConversionFailed, Err: err}
	}
	o.notifier.Converted(stored.FileName)

	out := &Result{StoredFile: stored, Dimensions: dims, Conversion: result}
	if o.mirror != nil {
		url, err := o.mirror.MirrorConversion(ctx, result)
		if err != nil {
			log.Warn().Err(err).Msg("mirror failed")
		} else {
			out.MirrorURL = url
		}
	}

	// 5. Cleanup
	o.fireBackgroundCleanup(stored)

	log.Info().
		Str("stage", string(StageResponded)).
		Str("download_url", result.DownloadURL).
		Dur("convert_duration", result.Duration).
		Dur("duration", time.Since(start)).
		Msg("upload converted")
	return out, nil
}

func (o *Orchestrator) fireBackgroundCleanup(file *types.StoredFile) {
	o.cleanups.Add(1)
	go func() {
		defer o.cleanups.Done()
		o.storage.Cleanup(file)
		o.logger.Debug().Str("file_name", file.FileName).Str("stage", string(StageCleanedUp)).Msg("upload removed")
	}()
}

// Wait blocks until every cleanup started so far has finished.
func (o *Orchestrator) Wait() {
	o.cleanups.Wait()
}
