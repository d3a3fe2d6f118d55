package transformation

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// MaxSide caps either raster dimension so a hostile width/height attribute
// cannot make the rasterizer allocate gigabytes.
const MaxSide = 8192

const sharpenSigma = 0.5

// Rasterize renders svg into an RGBA image of width x height. When either
// dimension is not positive the document's own size is used.
func Rasterize(svg []byte, width int, height int) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("rasterizer panic: %v", r)
		}
	}()

	// 1. Parse the document
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}

	// 2. Resolve the target size
	if width <= 0 || height <= 0 {
		width, height = int(math.Ceil(icon.ViewBox.W)), int(math.Ceil(icon.ViewBox.H))
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("svg has no intrinsic size")
	}
	if width > MaxSide || height > MaxSide {
		return nil, fmt.Errorf("target size %dx%d exceeds %d pixels per side", width, height, MaxSide)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W, icon.ViewBox.H = float64(width), float64(height)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	// 3. Draw
	img = image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)
	return img, nil
}

// PostProcess normalizes the raster to non-premultiplied sRGB and applies a
// light sharpening pass.
func PostProcess(img image.Image) *image.NRGBA {
	normalized := imaging.Clone(img)
	return imaging.Sharpen(normalized, sharpenSigma)
}

// EncodePNG favours encoding speed over output size.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
		return nil, fmt.Errorf("error while encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// SvgToPng runs the full raster chain: render, post-process, encode.
func SvgToPng(svg []byte, width int, height int) ([]byte, image.Rectangle, error) {
	img, err := Rasterize(svg, width, height)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	processed := PostProcess(img)
	out, err := EncodePNG(processed)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return out, processed.Bounds(), nil
}
