// Package render drives the per-frame pipeline: move the feature points,
// sample the distance field, normalize it, colorize it and hand the finished
// RGB buffer to a sink.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cellfield/bubbles/internal/channel"
	"github.com/cellfield/bubbles/internal/colormap"
	"github.com/cellfield/bubbles/internal/field"
	"github.com/cellfield/bubbles/internal/geom"
	"github.com/cellfield/bubbles/internal/noise"
	"github.com/cellfield/bubbles/internal/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrInvalidCanvas is returned for canvases that cannot hold a single frame.
var ErrInvalidCanvas = errors.New("invalid canvas")

// Canvas fixes the raster and animation length of a run.
type Canvas struct {
	Width  int
	Height int
	Frames int
}

// Validate checks that the canvas has pixels and at least one frame.
func (c Canvas) Validate() error {
	switch {
	case c.Width <= 0:
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidCanvas, c.Width)
	case c.Height <= 0:
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidCanvas, c.Height)
	case c.Frames < 1:
		return fmt.Errorf("%w: need at least one frame, got %d", ErrInvalidCanvas, c.Frames)
	}
	return nil
}

// Pixels is the number of pixels in one frame.
func (c Canvas) Pixels() int {
	return c.Width * c.Height
}

// BufferSize is the byte length of one RGB frame.
func (c Canvas) BufferSize() int {
	return c.Pixels() * colormap.BytesPerPixel
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// FrameSink receives finished frames. pixels is only valid for the duration
// of the call; implementations must copy what they keep.
type FrameSink interface {
	WriteFrame(index int, pixels []byte) error
}

// SinkFunc adapts a function to FrameSink.
type SinkFunc func(index int, pixels []byte) error

// WriteFrame calls f.
func (f SinkFunc) WriteFrame(index int, pixels []byte) error {
	return f(index, pixels)
}

// FrameStats describes one computed frame.
type FrameStats struct {
	Index       int
	Phase       float64
	MaxDistance float64
	Duration    time.Duration
	Sites       []geom.Point
}

// Observer is notified after every emitted frame. Observer errors are
// logged and do not stop the run.
type Observer interface {
	ObserveFrame(ctx context.Context, stats FrameStats) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, stats FrameStats) error

// ObserveFrame calls f.
func (f ObserverFunc) ObserveFrame(ctx context.Context, stats FrameStats) error {
	return f(ctx, stats)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWorkers bounds the goroutines used per frame stage. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Renderer) { r.pool = worker.NewPool(n) }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers frame observers, called in order.
func WithObserver(obs ...Observer) Option {
	return func(r *Renderer) { r.observers = append(r.observers, obs...) }
}

// Renderer owns the per-run buffers and computes frames in order.
type Renderer struct {
	canvas    Canvas
	field     *field.Field
	sampler   *noise.Sampler
	pool      *worker.Pool
	logger    Logger
	observers []Observer
	metrics   *instruments

	samples []noise.Sample
	sites   []geom.Point
	pixels  []byte

	state atomic.Int32
}

// New creates a renderer for f on canvas. The field must have been generated
// for the same raster.
func New(canvas Canvas, f *field.Field, opts ...Option) (*Renderer, error) {
	if err := canvas.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("render: nil field")
	}
	if f.Width() != canvas.Width || f.Height() != canvas.Height {
		return nil, fmt.Errorf("%w: field is %dx%d, canvas is %dx%d",
			ErrInvalidCanvas, f.Width(), f.Height(), canvas.Width, canvas.Height)
	}

	r := &Renderer{
		canvas: canvas,
		field:  f,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pool == nil {
		r.pool = worker.NewPool(0)
	}

	var err error
	r.sampler, err = noise.NewSampler(canvas.Width, canvas.Height, noise.WithPool(r.pool))
	if err != nil {
		return nil, err
	}
	r.metrics, err = newInstruments()
	if err != nil {
		return nil, err
	}

	r.samples = make([]noise.Sample, canvas.Pixels())
	r.sites = make([]geom.Point, 0, f.Len())
	r.pixels = make([]byte, canvas.BufferSize())
	return r, nil
}

// State reports the current pipeline stage.
func (r *Renderer) State() State {
	return State(r.state.Load())
}

func (r *Renderer) setState(s State) {
	r.state.Store(int32(s))
}

// Canvas returns the canvas being rendered.
func (r *Renderer) Canvas() Canvas {
	return r.canvas
}

// Pixels returns the frame buffer. Its contents are replaced by every
// RenderFrame call.
func (r *Renderer) Pixels() []byte {
	return r.pixels
}

// Samples returns the normalized distance field of the last frame.
func (r *Renderer) Samples() []noise.Sample {
	return r.samples
}

// RenderFrame computes frame i into the frame buffer.
func (r *Renderer) RenderFrame(ctx context.Context, i int) (FrameStats, error) {
	if i < 0 || i >= r.canvas.Frames {
		return FrameStats{}, fmt.Errorf("frame %d out of range [0, %d)", i, r.canvas.Frames)
	}
	start := time.Now()

	r.setState(Advancing)
	r.field.Advance(i, r.canvas.Frames)
	r.sites = r.field.Positions(r.sites)

	r.setState(Sampling)
	maxDist, err := r.sampler.SampleFrame(ctx, r.sites, r.samples)
	if err != nil {
		return FrameStats{}, fmt.Errorf("sampling frame %d: %w", i, err)
	}

	r.setState(Normalizing)
	if err := noise.Normalize(ctx, r.pool, r.samples, r.canvas.Width, maxDist); err != nil {
		return FrameStats{}, fmt.Errorf("normalizing frame %d: %w", i, err)
	}

	r.setState(Colorizing)
	if err := colormap.Colorize(ctx, r.pool, r.samples, r.canvas.Width, r.pixels); err != nil {
		return FrameStats{}, fmt.Errorf("colorizing frame %d: %w", i, err)
	}

	return FrameStats{
		Index:       i,
		Phase:       field.Phase(i, r.canvas.Frames),
		MaxDistance: maxDist,
		Duration:    time.Since(start),
		Sites:       append([]geom.Point(nil), r.sites...),
	}, nil
}

// Run renders every frame in order, passing each to sink and then sending
// its index on progress. progress is closed when Run returns, whether or not
// it succeeded; it may be nil.
func (r *Renderer) Run(ctx context.Context, sink FrameSink, progress channel.SendCloser[int]) error {
	if progress != nil {
		defer progress.Close()
	}

	r.logger.Info("rendering started",
		"width", r.canvas.Width,
		"height", r.canvas.Height,
		"frames", r.canvas.Frames,
		"cells", r.field.Len(),
		"workers", r.pool.Workers())

	for i := range r.canvas.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, err := r.RenderFrame(ctx, i)
		if err != nil {
			return err
		}

		if err := sink.WriteFrame(i, r.pixels); err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
		r.setState(Emitted)

		if progress != nil {
			progress.Send(i)
		}
		r.record(ctx, stats)
		r.notify(ctx, stats)
	}

	r.setState(Done)
	r.logger.Info("rendering finished", "frames", r.canvas.Frames)
	return nil
}

func (r *Renderer) record(ctx context.Context, stats FrameStats) {
	ms := float64(stats.Duration) / float64(time.Millisecond)
	r.metrics.frames.Add(ctx, 1)
	r.metrics.duration.Record(ctx, ms, metric.WithAttributes(attribute.Int("cells", len(stats.Sites))))
	r.metrics.maxDistance.Record(ctx, stats.MaxDistance)

	r.logger.Debug("frame emitted",
		"frame", stats.Index,
		"phase", stats.Phase,
		"maxDistance", stats.MaxDistance,
		"durationMs", ms)
}

func (r *Renderer) notify(ctx context.Context, stats FrameStats) {
	for _, o := range r.observers {
		if err := o.ObserveFrame(ctx, stats); err != nil {
			r.logger.Error("frame observer failed", "frame", stats.Index, "error", err)
		}
	}
}
