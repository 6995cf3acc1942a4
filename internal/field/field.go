// Package field models the scattered feature points of the cellular noise.
// Points are either fixed in place or orbit a randomly sized and rotated
// ellipse once per animation cycle.
package field

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cellfield/bubbles/internal/geom"
)

// ErrInvalidCanvas is returned when the canvas has no pixels to place points on.
var ErrInvalidCanvas = errors.New("canvas dimensions must be positive")

// Kind tags the motion model of a feature point.
type Kind uint8

const (
	Static Kind = iota
	Orbiting
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Orbiting:
		return "orbit"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "orbit", "orbiting", "":
		return Orbiting, nil
	case "static":
		return Static, nil
	}
	return 0, fmt.Errorf("unknown point variant %q", s)
}

// FeaturePoint is one scattered anchor of the noise field.
// Width, Height, Angle and Direction are meaningless for Static points.
type FeaturePoint struct {
	Kind      Kind
	Center    geom.Point
	Width     float64
	Height    float64
	Angle     float64
	Direction float64
	Current   geom.Point
}

// NewStatic returns a point fixed at p.
func NewStatic(p geom.Point) FeaturePoint {
	return FeaturePoint{Kind: Static, Center: p, Current: p}
}

// NewOrbiting returns a point travelling an ellipse of the given axes around center.
func NewOrbiting(center geom.Point, width, height, angle float64, clockwise bool) FeaturePoint {
	dir := -1.0
	if clockwise {
		dir = 1.0
	}
	fp := FeaturePoint{
		Kind:      Orbiting,
		Center:    center,
		Width:     width,
		Height:    height,
		Angle:     angle,
		Direction: dir,
	}
	fp.Current = fp.Locate(0).Truncate()
	return fp
}

// Phase returns the angle of frame i in an animation of total frames.
func Phase(i, total int) float64 {
	return 2 * math.Pi * float64(i) / float64(total)
}

// Locate returns the real-valued position of the point at the given phase.
func (fp *FeaturePoint) Locate(phase float64) geom.Vec {
	if fp.Kind == Static {
		return geom.Vec{X: float64(fp.Center.X), Y: float64(fp.Center.Y)}
	}
	sin, cos := math.Sincos((fp.Angle + phase) * fp.Direction)
	a := fp.Width / 2
	b := fp.Height / 2
	radius := (a * b) / math.Sqrt(a*a*sin*sin+b*b*cos*cos)

	ps, pc := math.Sincos(phase * fp.Direction)
	return geom.Vec{
		X: float64(fp.Center.X) + radius*ps,
		Y: float64(fp.Center.Y) + radius*pc,
	}
}

// Advance moves the point to its position for frame i of total.
func (fp *FeaturePoint) Advance(i, total int) {
	if fp.Kind == Static {
		return
	}
	fp.Current = fp.Locate(Phase(i, total)).Truncate()
}

// Field is the full set of feature points for one run.
type Field struct {
	width  int
	height int
	points []FeaturePoint
}

type options struct {
	kind     Kind
	fullTurn bool
}

// Option customises point generation.
type Option func(*options)

// WithKind selects the motion model of every generated point.
func WithKind(k Kind) Option {
	return func(o *options) { o.kind = k }
}

// WithFullTurn draws ellipse rotations from [0, 2π) instead of [0, π).
func WithFullTurn(enabled bool) Option {
	return func(o *options) { o.fullTurn = enabled }
}

// New scatters count points over a width x height canvas using rng.
// For every orbiting point the draws happen in a fixed order (center x,
// center y, height, width, angle, direction) so a seeded rng reproduces
// the same field.
func New(rng *rand.Rand, width, height, count int, opts ...Option) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}
	if count < 0 {
		return nil, fmt.Errorf("cell count must not be negative, got %d", count)
	}

	o := options{kind: Orbiting}
	for _, opt := range opts {
		opt(&o)
	}

	maxAngle := math.Pi
	if o.fullTurn {
		maxAngle = 2 * math.Pi
	}

	points := make([]FeaturePoint, count)
	for i := range points {
		center := geom.Pt(int64(rng.IntN(width)), int64(rng.IntN(height)))
		if o.kind == Static {
			points[i] = NewStatic(center)
			continue
		}
		h := axis(rng, height)
		w := axis(rng, width)
		angle := rng.Float64() * maxAngle
		clockwise := rng.IntN(2) == 1
		points[i] = NewOrbiting(center, w, h, angle, clockwise)
	}

	return &Field{width: width, height: height, points: points}, nil
}

// FromPoints wraps an existing set of points.
func FromPoints(width, height int, points []FeaturePoint) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}
	return &Field{width: width, height: height, points: points}, nil
}

// axis draws an ellipse axis length in [1, dim/5). Canvases too small for
// that interval get a fixed axis of 1.
func axis(rng *rand.Rand, dim int) float64 {
	upper := float64(dim) / 5
	if upper <= 1 {
		return 1
	}
	return 1 + rng.Float64()*(upper-1)
}

// Advance updates every point's current position for frame i of total.
func (f *Field) Advance(i, total int) {
	for j := range f.points {
		f.points[j].Advance(i, total)
	}
}

// Positions copies the current positions into dst, growing it as needed.
func (f *Field) Positions(dst []geom.Point) []geom.Point {
	dst = dst[:0]
	for _, p := range f.points {
		dst = append(dst, p.Current)
	}
	return dst
}

// Points exposes the underlying points. Callers must not retain the slice
// across Advance calls.
func (f *Field) Points() []FeaturePoint {
	return f.points
}

// Len returns the number of feature points.
func (f *Field) Len() int {
	return len(f.points)
}

// Width returns the canvas width the field was generated for.
func (f *Field) Width() int { return f.width }

// Height returns the canvas height the field was generated for.
func (f *Field) Height() int { return f.height }
