package render

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/cellfield/bubbles/internal/render"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	frames      metric.Int64Counter
	duration    metric.Float64Histogram
	maxDistance metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := meter()
	var (
		in  instruments
		err error
	)

	in.frames, err = m.Int64Counter(
		"render.frames.rendered",
		metric.WithDescription("Total frames rendered and emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	in.duration, err = m.Float64Histogram(
		"render.frame.duration",
		metric.WithDescription("Wall time to compute one frame"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame duration histogram: %w", err)
	}

	in.maxDistance, err = m.Float64Histogram(
		"render.frame.max_distance",
		metric.WithDescription("Largest pixel-to-feature distance per frame"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating max distance histogram: %w", err)
	}

	return &in, nil
}
