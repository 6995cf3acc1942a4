package encode

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/setanarut/apng"
)

// apngDelay is the per-frame delay handed to the APNG writer.
const apngDelay = 4

// APNG collects full-color frames and saves a lossless animated PNG on Close.
type APNG struct {
	path   string
	width  int
	height int
	frames []image.Image
	closed bool
}

// NewAPNG checks that path is writable and returns an encoder for it.
func NewAPNG(path string, width, height int, _ Options) (*APNG, error) {
	dir := filepath.Dir(path)
	if st, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("creating output file: %s is not a directory", dir)
	}
	return &APNG{path: path, width: width, height: height}, nil
}

// WriteFrame copies pixels into a new frame.
func (a *APNG) WriteFrame(index int, pixels []byte) error {
	if a.closed {
		return errors.New("apng: write after close")
	}
	if index != len(a.frames) {
		return fmt.Errorf("apng: frame %d out of order, expected %d", index, len(a.frames))
	}
	if err := checkFrame(pixels, a.width, a.height); err != nil {
		return err
	}
	a.frames = append(a.frames, toNRGBA(pixels, a.width, a.height))
	return nil
}

// Frames returns the number of frames queued so far.
func (a *APNG) Frames() int {
	return len(a.frames)
}

// Close writes the file.
func (a *APNG) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if len(a.frames) == 0 {
		return errors.New("apng: no frames written")
	}

	// Save reports nothing, so a leftover file must not pass the size check.
	if err := os.Remove(a.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", a.path, err)
	}
	apng.Save(a.path, a.frames, apngDelay)

	st, err := os.Stat(a.path)
	if err != nil {
		return fmt.Errorf("writing apng: %w", err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("writing apng: %s is empty", a.path)
	}
	return nil
}
