package encode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"

	"github.com/cellfield/bubbles/internal/colormap"
	"golang.org/x/image/draw"
)

// GIF collects paletted frames and writes a looping GIF on Close.
type GIF struct {
	w       io.Writer
	width   int
	height  int
	opts    Options
	palette color.Palette
	anim    gif.GIF
	closed  bool
}

// NewGIF returns a GIF encoder writing to w.
func NewGIF(w io.Writer, width, height int, opts Options) *GIF {
	if opts.PaletteSize <= 0 {
		opts.PaletteSize = 256
	}
	return &GIF{
		w:       w,
		width:   width,
		height:  height,
		opts:    opts,
		palette: colormap.Palette(opts.PaletteSize),
		anim: gif.GIF{
			LoopCount: 0,
			Config:    image.Config{Width: width, Height: height},
		},
	}
}

// WriteFrame quantizes pixels against the ramp palette and queues the frame.
func (g *GIF) WriteFrame(index int, pixels []byte) error {
	if g.closed {
		return errors.New("gif: write after close")
	}
	if index != len(g.anim.Image) {
		return fmt.Errorf("gif: frame %d out of order, expected %d", index, len(g.anim.Image))
	}
	if err := checkFrame(pixels, g.width, g.height); err != nil {
		return err
	}

	src := &rgbImage{pix: pixels, width: g.width, height: g.height}
	dst := image.NewPaletted(src.Bounds(), g.palette)
	if g.opts.Dither {
		draw.FloydSteinberg.Draw(dst, dst.Bounds(), src, image.Point{})
	} else {
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	}

	g.anim.Image = append(g.anim.Image, dst)
	g.anim.Delay = append(g.anim.Delay, g.opts.Delay)
	g.anim.Disposal = append(g.anim.Disposal, gif.DisposalNone)
	return nil
}

// Frames returns the number of frames queued so far.
func (g *GIF) Frames() int {
	return len(g.anim.Image)
}

// Close encodes every queued frame.
func (g *GIF) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if len(g.anim.Image) == 0 {
		return errors.New("gif: no frames written")
	}
	if err := gif.EncodeAll(g.w, &g.anim); err != nil {
		return fmt.Errorf("encoding gif: %w", err)
	}
	return nil
}
