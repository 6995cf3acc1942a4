// Package noise computes the per-pixel distance field of a set of feature
// points and normalizes it to [0, 1].
package noise

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cellfield/bubbles/internal/geom"
	"github.com/cellfield/bubbles/internal/worker"
)

// ErrInvalidCanvas is returned for a sampler with no pixels.
var ErrInvalidCanvas = errors.New("sampler dimensions must be positive")

// Sample is the nearest-feature result for one pixel.
// Nearest is -1 when no feature point came within the canvas diagonal.
type Sample struct {
	Dist    float64
	Nearest int
}

// Sampler computes distance fields over a fixed canvas.
type Sampler struct {
	width  int
	height int
	cross  float64
	pool   *worker.Pool
}

// SamplerOption customises a Sampler.
type SamplerOption func(*Sampler)

// WithPool sets the pool used to split rows across goroutines.
func WithPool(p *worker.Pool) SamplerOption {
	return func(s *Sampler) { s.pool = p }
}

// NewSampler returns a sampler for a width x height canvas.
func NewSampler(width, height int, opts ...SamplerOption) (*Sampler, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}
	s := &Sampler{
		width:  width,
		height: height,
		cross:  geom.Diagonal(width, height),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = worker.NewPool(0)
	}
	return s, nil
}

// CrossDistance is the starting minimum for every pixel: the distance from
// (0,0) to (width-1, height-1).
func (s *Sampler) CrossDistance() float64 {
	return s.cross
}

// Len is the number of pixels a frame holds.
func (s *Sampler) Len() int {
	return s.width * s.height
}

// Nearest finds the closest site to p. Sites are scanned in order and only a
// strictly smaller distance replaces the current best, so the earliest site
// wins ties. A site exactly at the diagonal is recorded without changing the
// distance.
func (s *Sampler) Nearest(p geom.Point, sites []geom.Point) Sample {
	best := Sample{Dist: s.cross, Nearest: -1}
	for i, site := range sites {
		d := geom.Distance(p, site)
		if d < best.Dist || (best.Nearest < 0 && d == best.Dist) {
			best = Sample{Dist: d, Nearest: i}
		}
	}
	return best
}

// SampleFrame fills dst (row-major, one entry per pixel) with the nearest
// site of every pixel and returns the largest distance in the frame.
func (s *Sampler) SampleFrame(ctx context.Context, sites []geom.Point, dst []Sample) (float64, error) {
	if len(dst) != s.Len() {
		return 0, fmt.Errorf("sample buffer holds %d entries, want %d", len(dst), s.Len())
	}

	maxes := make([]float64, s.pool.Bands(s.height))
	err := s.pool.Rows(ctx, s.height, func(ctx context.Context, idx int, b worker.Band) error {
		local := 0.0
		for y := b.Lo; y < b.Hi; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := dst[y*s.width : (y+1)*s.width]
			for x := range row {
				row[x] = s.Nearest(geom.Pt(int64(x), int64(y)), sites)
				local = math.Max(local, row[x].Dist)
			}
		}
		maxes[idx] = local
		return nil
	})
	if err != nil {
		return 0, err
	}

	maxDist := 0.0
	for _, m := range maxes {
		maxDist = math.Max(maxDist, m)
	}
	return maxDist, nil
}
