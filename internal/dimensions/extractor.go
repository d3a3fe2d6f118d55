// Package dimensions resolves the raster size of an SVG from its root element.
package dimensions

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
	"golang.org/x/net/html/charset"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

var (
	errNoRoot       = errors.New("document has no root element")
	errNoDimensions = errors.New("root element has no usable width/height or viewBox")
)

type Extractor struct {
	logger *observability.Logger
}

func NewExtractor(logger *observability.Logger) *Extractor {
	return &Extractor{logger: logger.WithComponent("dimensions")}
}

func Default() types.SvgDimensions {
	return types.SvgDimensions{Width: DefaultWidth, Height: DefaultHeight}
}

// ExtractDimensions never fails: any read or parse problem degrades to 800x600.
func (e *Extractor) ExtractDimensions(file *types.StoredFile) types.SvgDimensions {
	return e.ExtractFromPath(file.Path)
}

func (e *Extractor) ExtractFromPath(path string) types.SvgDimensions {
	f, err := os.Open(path)
	if err != nil {
		e.logger.Debug().Err(err).Str("path", path).Msg("falling back to default dimensions")
		return Default()
	}
	defer f.Close()

	dims, err := Parse(f)
	if err != nil {
		e.logger.Debug().Err(err).Str("path", path).Msg("falling back to default dimensions")
		return Default()
	}
	return dims
}

// Parse reads the whole document and resolves width/height from the root
// element: explicit width+height first, then the viewBox, else an error.
func Parse(r io.Reader) (types.SvgDimensions, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var root *xml.StartElement
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.SvgDimensions{}, fmt.Errorf("malformed document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && root == nil {
			se = se.Copy()
			root = &se
		}
	}
	if root == nil {
		return types.SvgDimensions{}, errNoRoot
	}

	attrs := make(map[string]string, len(root.Attr))
	for _, attr := range root.Attr {
		// attributes are addressed without their namespace prefix
		attrs[attr.Name.Local] = attr.Value
	}

	width, hasWidth := attrs["width"]
	height, hasHeight := attrs["height"]
	if hasWidth && hasHeight {
		return toDimensions(width, height)
	}

	if viewBox, ok := attrs["viewBox"]; ok {
		fields := strings.FieldsFunc(viewBox, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if len(fields) == 4 {
			return toDimensions(fields[2], fields[3])
		}
	}
	return types.SvgDimensions{}, errNoDimensions
}

func toDimensions(width, height string) (types.SvgDimensions, error) {
	w, err := leadingInt(width)
	if err != nil {
		return types.SvgDimensions{}, fmt.Errorf("width: %w", err)
	}
	h, err := leadingInt(height)
	if err != nil {
		return types.SvgDimensions{}, fmt.Errorf("height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return types.SvgDimensions{}, fmt.Errorf("non-positive dimensions %dx%d", w, h)
	}
	return types.SvgDimensions{Width: w, Height: h}, nil
}

// leadingInt parses the integer prefix of s, so "300px" and "300.7" give 300.
func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.Atoi(s[:end])
}
