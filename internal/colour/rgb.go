// Package colour provides colour statistics, pixel buffers and terminal previews.
package colour

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// RGB represents a color in RGB format.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as a hex string (e.g., "#1a2b3c").
func (rgb RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// Vec returns the colour as a normalised [0,1] channel vector.
func (rgb RGB) Vec() r3.Vec {
	return r3.Vec{
		X: float64(rgb.R) / 255,
		Y: float64(rgb.G) / 255,
		Z: float64(rgb.B) / 255,
	}
}

// RGBA implements color.Color so an RGB can be drawn directly.
func (rgb RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}.RGBA()
}

// ToRGB converts a color.Color to RGB.
// Alpha is dropped after converting to non-premultiplied form.
func ToRGB(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// FromVec converts a normalised channel vector back to 8-bit RGB.
// Components outside [0,1] are clamped.
func FromVec(v r3.Vec) RGB {
	r, g, b := colorful.Color{R: v.X, G: v.Y, B: v.Z}.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// VecHex formats a normalised channel vector as a hex colour string.
func VecHex(v r3.Vec) string {
	return colorful.Color{R: v.X, G: v.Y, B: v.Z}.Clamped().Hex()
}
