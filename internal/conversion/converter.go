// Package conversion turns a stored SVG into a publicly served PNG.
package conversion

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/transformation"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/mahirjain10/quicksvg/internal/utils"
)

const convertedSuffix = "_converted.png"

// ErrConversionFailed is the only error callers ever see; details stay in the log.
var ErrConversionFailed = errors.New("failed to convert svg to png")

type Converter struct {
	publicDir    string
	publicPrefix string
	logger       *observability.Logger
}

func NewConverter(publicDir string, publicPrefix string, logger *observability.Logger) *Converter {
	return &Converter{
		publicDir:    publicDir,
		publicPrefix: publicPrefix,
		logger:       logger.WithComponent("conversion"),
	}
}

// OutputName derives the PNG name from the source's base name.
func OutputName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + convertedSuffix
}

// DownloadURL joins the request origin, the static prefix and the file name.
func (c *Converter) DownloadURL(baseURL string, fileName string) string {
	return strings.TrimRight(baseURL, "/") + path.Join("/", c.publicPrefix, fileName)
}

// Convert renders sourcePath at width x height (native size if either is not
// positive), writes the PNG into the public directory and returns where it
// can be downloaded.
func (c *Converter) Convert(baseURL string, sourcePath string, width int, height int) (*types.ConversionResult, error) {
	start := time.Now()
	fail := func(err error, msg string) (*types.ConversionResult, error) {
		c.logger.Error().
			Err(err).
			Str("source", sourcePath).
			Int("width", width).
			Int("height", height).
			Msg(msg)
		return nil, ErrConversionFailed
	}

	svg, err := utils.ReadImageBuffer(sourcePath)
	if err != nil {
		return fail(err, "error reading svg for conversion")
	}

	pngBytes, bounds, err := transformation.SvgToPng(svg, width, height)
	if err != nil {
		return fail(err, "error during svg to png conversion")
	}

	fileName := OutputName(sourcePath)
	outputPath, err := utils.PathUtil(c.publicDir, fileName)
	if err != nil {
		return fail(err, "error preparing output directory")
	}
	if err := utils.WriteImageBuffer(outputPath, pngBytes); err != nil {
		return fail(err, "error writing converted png")
	}

	result := &types.ConversionResult{
		DownloadURL: c.DownloadURL(baseURL, fileName),
		FileName:    fileName,
		Path:        outputPath,
		Size:        int64(len(pngBytes)),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Duration:    time.Since(start),
	}
	c.logger.Info().
		Str("output", outputPath).
		Int64("size", result.Size).
		Dur("duration", result.Duration).
		Msg("svg converted to png")
	return result, nil
}
