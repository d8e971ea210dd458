package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/jmylchreest/swatchpath/internal/gradient"
)

// Image draws rows as a grid of CellSize squares. Cells show the entry's
// texture when Textures supplies one, otherwise a solid swatch. Rows shorter
// than the longest row leave transparent space on the right.
func Image(rows []gradient.Row, opts Options) *image.NRGBA {
	size := opts.cellSize()
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}

	img := image.NewNRGBA(image.Rect(0, 0, cols*size, len(rows)*size))
	for y, row := range rows {
		for x, cell := range row {
			dst := image.Rect(x*size, y*size, (x+1)*size, (y+1)*size)
			if opts.Textures != nil {
				if tex := opts.Textures(cell.Entry); tex != nil && !tex.Empty() {
					src := tex.Image()
					draw.NearestNeighbor.Scale(img, dst, src, src.Bounds(), draw.Src, nil)
					continue
				}
			}
			c := CellColour(cell.Entry, opts.Variant)
			fill := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
			draw.Draw(img, dst, fill, image.Point{}, draw.Src)
		}
	}
	return img
}

// PNG encodes Image(rows, opts) as PNG.
func PNG(w io.Writer, rows []gradient.Row, opts Options) error {
	if len(rows) == 0 {
		return fmt.Errorf("no rows to render")
	}
	if err := png.Encode(w, Image(rows, opts)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
