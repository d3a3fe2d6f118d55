package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mahirjain10/quicksvg/config"
	"github.com/mahirjain10/quicksvg/internal/conversion"
	"github.com/mahirjain10/quicksvg/internal/dimensions"
	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/storage"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/mahirjain10/quicksvg/internal/utils"
)

var (
	cfgFile    string
	convertOut string
)

var rootCmd = &cobra.Command{
	Use:           "quicksvg",
	Short:         "SVG to PNG conversion service",
	Long:          "quicksvg accepts SVG uploads over HTTP, rasterizes them to PNG and serves the result.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.svg>",
	Short: "Convert a local SVG file to PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Delete retained uploads older than RETENTION_TTL once",
	RunE:  runReap,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (overrides CONFIG_PATH)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output directory (defaults to PUBLIC_DIR)")

	rootCmd.AddCommand(serveCmd, convertCmd, reapCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, *observability.Logger, error) {
	if cfgFile != "" {
		os.Setenv("CONFIG_PATH", cfgFile)
	}
	cfg, err := config.InitializeEnvs()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize environment config: %w", err)
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "quicksvg",
	})
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("error during close")
		}
	}()

	logger.Info().Msg("application initialized successfully")
	return app.Run(ctx)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	src := args[0]

	// 1. Validate
	data, err := utils.ReadImageBuffer(src)
	if err != nil {
		return err
	}
	req := &types.UploadRequest{
		Data:         data,
		OriginalName: filepath.Base(src),
		MimeType:     mime.TypeByExtension(filepath.Ext(src)),
		Size:         int64(len(data)),
	}
	if err := newValidator(cfg).Validate(req); err != nil {
		return err
	}

	// 2. Dimensions
	dims := dimensions.NewExtractor(logger).ExtractFromPath(src)

	// 3. Rasterize
	outDir := convertOut
	if outDir == "" {
		outDir = cfg.PublicDir
	}
	result, err := conversion.NewConverter(outDir, cfg.PublicPrefix, logger).Convert("", src, dims.Width, dims.Height)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%dx%d, %d bytes)\n", result.Path, result.Width, result.Height, result.Size)
	return nil
}

func runReap(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	removed, err := storage.NewReaper(cfg.UploadDir, cfg.RetentionTTL, logger).Sweep(time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d retained upload(s) from %s\n", removed, cfg.UploadDir)
	return nil
}
