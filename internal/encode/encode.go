// Package encode assembles rendered RGB frames into animation containers.
package encode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format names an output container.
type Format string

const (
	FormatGIF  Format = "gif"
	FormatAPNG Format = "apng"
)

// ErrUnknownFormat is returned for unsupported container names.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat resolves an explicit format name, or infers it from the
// path's extension when name is empty. Unknown extensions default to GIF.
func ParseFormat(name, path string) (Format, error) {
	switch strings.ToLower(name) {
	case "gif":
		return FormatGIF, nil
	case "apng", "png":
		return FormatAPNG, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	if strings.EqualFold(filepath.Ext(path), ".png") || strings.EqualFold(filepath.Ext(path), ".apng") {
		return FormatAPNG, nil
	}
	return FormatGIF, nil
}

// Encoder accepts frames in order and writes the container on Close.
type Encoder interface {
	WriteFrame(index int, pixels []byte) error
	Close() error
	Frames() int
}

// Options tune the output.
type Options struct {
	// Delay between frames in hundredths of a second.
	Delay int
	// Dither applies Floyd-Steinberg error diffusion when quantizing GIF frames.
	Dither bool
	// PaletteSize is the number of ramp colors in the GIF palette.
	PaletteSize int
}

// DefaultOptions matches the reference animation: no delay, 256 colors.
func DefaultOptions() Options {
	return Options{PaletteSize: 256}
}

// Create opens path and returns the encoder for format.
func Create(path string, format Format, width, height int, opts Options) (Encoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("encoder dimensions must be positive, got %dx%d", width, height)
	}

	switch format {
	case FormatGIF:
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("creating output file: %w", err)
		}
		return &fileEncoder{Encoder: NewGIF(f, width, height, opts), file: f}, nil
	case FormatAPNG:
		return NewAPNG(path, width, height, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// fileEncoder closes the output file after the container is written.
type fileEncoder struct {
	Encoder
	file io.Closer
}

func (f *fileEncoder) Close() error {
	err := f.Encoder.Close()
	if cerr := f.file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output file: %w", cerr)
	}
	return err
}

// rgbImage views a packed RGB buffer as an image.Image without copying.
type rgbImage struct {
	pix    []byte
	width  int
	height int
}

func (m *rgbImage) ColorModel() color.Model { return color.RGBAModel }

func (m *rgbImage) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

func (m *rgbImage) At(x, y int) color.Color {
	i := 3 * (m.width*y + x)
	return color.RGBA{R: m.pix[i], G: m.pix[i+1], B: m.pix[i+2], A: 0xff}
}

func checkFrame(pixels []byte, width, height int) error {
	if want := width * height * 3; len(pixels) != want {
		return fmt.Errorf("frame buffer holds %d bytes, want %d", len(pixels), want)
	}
	return nil
}

// toNRGBA copies a packed RGB buffer into a standalone image.
func toNRGBA(pixels []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pixels); i, j = i+3, j+4 {
		img.Pix[j] = pixels[i]
		img.Pix[j+1] = pixels[i+1]
		img.Pix[j+2] = pixels[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
