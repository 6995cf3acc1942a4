// Package colormap maps normalized distances onto the flesh-toned ramp used
// for every frame.
package colormap

import (
	"context"
	"fmt"
	"image/color"
	"math"

	"github.com/cellfield/bubbles/internal/noise"
	"github.com/cellfield/bubbles/internal/worker"
)

// BytesPerPixel is the stride of a frame buffer.
const BytesPerPixel = 3

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// Flesh maps a normalized distance to a color. Cell centres are pale pink,
// shading through red to black at the cell edges. Inputs outside [0, 1] are
// clamped and NaN is treated as 0.
func Flesh(d float64) RGB {
	switch {
	case math.IsNaN(d) || d < 0:
		d = 0
	case d > 1:
		d = 1
	}

	if d < 0.5 {
		blue := 0xff - sat(512*d)
		return RGB{
			R: 0xff - sat(102*d),
			G: sat(float64(blue) * 0.8),
			B: blue,
		}
	}
	return RGB{R: 0xff - sat(408*(d-0.5)+51)}
}

// sat truncates v toward zero into a byte, saturating at the bounds.
func sat(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 0xff:
		return 0xff
	}
	return uint8(v)
}

// Offset is the index of the red byte of pixel (x, y).
func Offset(width, x, y int) int {
	return BytesPerPixel * (width*y + x)
}

// Paint writes c to pixel (x, y) of an RGB buffer.
func Paint(buf []byte, width, x, y int, c RGB) {
	i := Offset(width, x, y)
	buf[i] = c.R
	buf[i+1] = c.G
	buf[i+2] = c.B
}

// Colorize fills buf with the color of every normalized sample.
func Colorize(ctx context.Context, pool *worker.Pool, samples []noise.Sample, width int, buf []byte) error {
	if len(buf) != len(samples)*BytesPerPixel {
		return fmt.Errorf("frame buffer holds %d bytes, want %d", len(buf), len(samples)*BytesPerPixel)
	}
	if width <= 0 || len(samples) == 0 {
		return nil
	}

	return pool.Rows(ctx, len(samples)/width, func(ctx context.Context, _ int, b worker.Band) error {
		for y := b.Lo; y < b.Hi; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < width; x++ {
				Paint(buf, width, x, y, Flesh(samples[y*width+x].Dist))
			}
		}
		return nil
	})
}

// Palette samples the ramp at n evenly spaced distances. n is clamped to [2, 256].
func Palette(n int) color.Palette {
	n = max(2, min(n, 256))
	p := make(color.Palette, n)
	for i := range p {
		p[i] = Flesh(float64(i) / float64(n-1))
	}
	return p
}
