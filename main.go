package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mahirjain10/quicksvg/config"
	"github.com/mahirjain10/quicksvg/internal/aws"
	"github.com/mahirjain10/quicksvg/internal/conversion"
	"github.com/mahirjain10/quicksvg/internal/dimensions"
	"github.com/mahirjain10/quicksvg/internal/httpapi"
	"github.com/mahirjain10/quicksvg/internal/metadata"
	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/pipeline"
	"github.com/mahirjain10/quicksvg/internal/queue"
	"github.com/mahirjain10/quicksvg/internal/storage"
	"github.com/mahirjain10/quicksvg/internal/validation"
)

const (
	metadataTimeout = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

type App struct {
	config       *config.Config
	logger       *observability.Logger
	reaper       *storage.Reaper
	orchestrator *pipeline.Orchestrator
	notifier     *metadata.Notifier
	server       *http.Server
	closers      []func() error
}

// NewApp creates and initializes a new App instance with all dependencies.
// Optional collaborators (SQL metadata, status events, S3 mirror) are only
// wired when their configuration is present.
func NewApp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	app := &App{config: cfg, logger: logger}

	validator := newValidator(cfg)
	store := storage.NewManager(cfg.UploadDir, logger)
	store.EnsureDirectory()

	// Metadata sinks
	var recorders metadata.Fanout
	if cfg.DbURL != "" {
		sqlRecorder, err := metadata.Open(ctx, cfg.DbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata store: %w", err)
		}
		app.closers = append(app.closers, sqlRecorder.Close)
		if err := sqlRecorder.Migrate(ctx); err != nil {
			app.Close()
			return nil, err
		}
		recorders = append(recorders, sqlRecorder)
	}
	if cfg.RabbitMqURL != "" {
		publisher, err := app.newStatusPublisher(cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		recorders = append(recorders, publisher)
	}
	var recorder metadata.Recorder
	if len(recorders) > 0 {
		recorder = recorders
	}
	app.notifier = metadata.NewNotifier(recorder, logger, metadataTimeout)

	// S3 mirror
	var opts []pipeline.Option
	if cfg.AwsBucketName != "" {
		awsConfig, err := config.InitializeAws(ctx, cfg.AwsRegion)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
		}
		s3Service := aws.NewS3Service(aws.NewS3Client(awsConfig, cfg.AwsS3Endpoint), cfg.AwsBucketName, logger)
		opts = append(opts, pipeline.WithMirror(s3Service))
	}

	app.orchestrator = pipeline.NewOrchestrator(
		validator,
		store,
		dimensions.NewExtractor(logger),
		conversion.NewConverter(cfg.PublicDir, cfg.PublicPrefix, logger),
		app.notifier,
		logger,
		opts...,
	)

	handler := httpapi.NewUploadHandler(app.orchestrator, cfg.MaxFileSize(), validator.SizeError(), logger)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		PublicDir:    cfg.PublicDir,
		PublicPrefix: cfg.PublicPrefix,
	}, handler, logger)

	app.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.reaper = storage.NewReaper(cfg.UploadDir, cfg.RetentionTTL, logger)
	return app, nil
}

func (a *App) newStatusPublisher(cfg *config.Config) (*queue.StatusPublisher, error) {
	conn, err := queue.NewRabbitMQClient(cfg.RabbitMqURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)

	publisher, err := queue.NewStatusPublisher(conn, cfg.RabbitMqExchange, a.logger)
	if err != nil {
		return nil, err
	}
	// the channel must go before its connection; closers run in reverse
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

// Run serves HTTP and sweeps retained uploads until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.reaper.Run(ctx, a.config.ReaperInterval)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.server.Addr).Msg("server listening")
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close waits for in-flight cleanups and metadata, then releases connections.
func (a *App) Close() error {
	if a.orchestrator != nil {
		a.orchestrator.Wait()
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newValidator(cfg *config.Config) *validation.Validator {
	return validation.NewValidator(validation.Rules{
		Extensions:  []string{config.SupportedExtension},
		MimeTypes:   []string{config.SupportedMimeType},
		MaxFileSize: cfg.MaxFileSize(),
	})
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
