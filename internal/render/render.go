// Package render draws gradient rows as ANSI text, JSON, PNG, or an
// interactive terminal grid.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/gradient"
)

// Format is an output encoding for gradient rows.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
)

// ValidFormats returns the supported output formats.
func ValidFormats() []Format {
	return []Format{FormatText, FormatJSON, FormatPNG}
}

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range ValidFormats() {
		if f == valid {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q (valid: text, json, png)", s)
}

// TextureFunc returns the pixels to draw for an entry, or nil to draw a
// solid swatch.
type TextureFunc func(e *cluster.Entry) *colour.PixelBuffer

// Options configures the renderers.
type Options struct {
	// Variant selects which colour of each entry is shown.
	Variant cluster.Variant

	// CellWidth is the character width of a text cell. Zero means 4.
	CellWidth int

	// Width truncates text rows to this many columns. Zero means no limit.
	Width int

	// Labels lists the items of every row under the swatches.
	Labels bool

	// CellSize is the pixel size of a PNG cell. Zero means 16.
	CellSize int

	// Textures supplies texture pixels for PNG output.
	Textures TextureFunc
}

func (o Options) cellWidth() int {
	if o.CellWidth <= 0 {
		return 4
	}
	return o.CellWidth
}

func (o Options) cellSize() int {
	if o.CellSize <= 0 {
		return 16
	}
	return o.CellSize
}

// Write renders rows in format f.
func Write(w io.Writer, f Format, rows []gradient.Row, opts Options) error {
	switch f {
	case FormatText:
		return Text(w, rows, opts)
	case FormatJSON:
		return JSON(w, rows, opts)
	case FormatPNG:
		return PNG(w, rows, opts)
	default:
		return fmt.Errorf("invalid format %q", f)
	}
}

// CellColour returns the colour shown for e under variant v.
func CellColour(e *cluster.Entry, v cluster.Variant) colour.RGB {
	if e == nil {
		return colour.RGB{}
	}
	return colour.FromVec(e.Feature(v))
}
