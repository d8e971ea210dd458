// Palette generator for creating a synthetic block texture pack for testing
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
)

const size = 16

func main() {
	root := filepath.Join("testdata", "palette", "block")
	if err := os.MkdirAll(root, 0o750); err != nil {
		panic(err)
	}
	rng := rand.New(rand.NewPCG(1, 2)) // #nosec G404 - deterministic test data

	// A hue wheel of noisy wool-like blocks
	for i := range 24 {
		hue := float64(i) * 15
		base := colorful.Hsv(hue, 0.7, 0.85)
		write(filepath.Join(root, fmt.Sprintf("wool_%02d.png", i)), noisy(base, 0.04, rng))
	}

	// A greyscale ramp of solid blocks
	for i := range 9 {
		v := float64(i) / 8
		write(filepath.Join(root, fmt.Sprintf("concrete_%d.png", i)), noisy(colorful.Color{R: v, G: v, B: v}, 0, rng))
	}

	// A log with distinct faces
	write(filepath.Join(root, "oak_log_top.png"), noisy(colorful.Color{R: 0.72, G: 0.58, B: 0.36}, 0.05, rng))
	write(filepath.Join(root, "oak_log_side.png"), noisy(colorful.Color{R: 0.42, G: 0.33, B: 0.2}, 0.08, rng))

	// Two-tone ore whose average is misleading
	ore := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			c := color.NRGBA{R: 125, G: 125, B: 125, A: 255}
			if (x/4+y/4)%3 == 0 {
				c = color.NRGBA{R: 240, G: 200, B: 40, A: 255}
			}
			ore.SetNRGBA(x, y, c)
		}
	}
	write(filepath.Join(root, "gold_ore.png"), ore)

	println("Test palette created: testdata/palette")
}

func noisy(base colorful.Color, amount float64, rng *rand.Rand) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			c := colorful.Color{
				R: base.R + (rng.Float64()*2-1)*amount,
				G: base.G + (rng.Float64()*2-1)*amount,
				B: base.B + (rng.Float64()*2-1)*amount,
			}.Clamped()
			r, g, b := c.RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func write(path string, img image.Image) {
	file, err := os.Create(path) // #nosec G304 - generated path
	if err != nil {
		panic(err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		panic(err)
	}
}

