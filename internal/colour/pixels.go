package colour

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
)

// PixelBuffer is a width x height grid of RGB byte triples in row-major order.
// It is treated as read-only once constructed.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8 // len = Width*Height*3
}

// NewPixelBuffer wraps raw RGB triples. The slice is not copied.
func NewPixelBuffer(width, height int, pix []uint8) (*PixelBuffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("pixel data length %d does not match %dx%d RGB", len(pix), width, height)
	}
	return &PixelBuffer{Width: width, Height: height, Pix: pix}, nil
}

// SolidBuffer returns a buffer filled with a single colour.
func SolidBuffer(width, height int, c RGB) *PixelBuffer {
	pix := make([]uint8, width*height*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = c.R, c.G, c.B
	}
	return &PixelBuffer{Width: width, Height: height, Pix: pix}
}

// FromImage copies the RGB channels of img into a new PixelBuffer.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, 0, w*h*3)

	// Fast path for the common decoder output.
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := nrgba.Pix[nrgba.PixOffset(bounds.Min.X, y):]
			for x := 0; x < w; x++ {
				pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
		return &PixelBuffer{Width: w, Height: h, Pix: pix}
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := ToRGB(img.At(x, y))
			pix = append(pix, c.R, c.G, c.B)
		}
	}
	return &PixelBuffer{Width: w, Height: h, Pix: pix}
}

// Len returns the number of pixels.
func (b *PixelBuffer) Len() int {
	if b == nil {
		return 0
	}
	return b.Width * b.Height
}

// Empty reports whether the buffer has zero area.
func (b *PixelBuffer) Empty() bool {
	return b.Len() == 0 || len(b.Pix) < b.Len()*3
}

// At returns the colour of the pixel at (x, y).
func (b *PixelBuffer) At(x, y int) RGB {
	i := (y*b.Width + x) * 3
	return RGB{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2]}
}

// Image returns an opaque image.RGBA copy of the buffer.
func (b *PixelBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := b.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return img
}

// Hash returns a hex SHA-256 digest of the dimensions and pixel content.
func (b *PixelBuffer) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%dx%d:", b.Width, b.Height)
	h.Write(b.Pix)
	return hex.EncodeToString(h.Sum(nil))
}
