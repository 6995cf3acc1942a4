package noise

import (
	"context"
	"math"

	"github.com/cellfield/bubbles/internal/worker"
)

// Normalize divides every sample by maxDist in place so the frame spans
// [0, 1]. A zero or non-finite maxDist maps every sample to 0.
func Normalize(ctx context.Context, pool *worker.Pool, samples []Sample, width int, maxDist float64) error {
	if width <= 0 || len(samples) == 0 {
		return nil
	}
	degenerate := maxDist <= 0 || math.IsNaN(maxDist) || math.IsInf(maxDist, 0)

	return pool.Rows(ctx, len(samples)/width, func(ctx context.Context, _ int, b worker.Band) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := b.Lo * width; i < b.Hi*width; i++ {
			if degenerate {
				samples[i].Dist = 0
				continue
			}
			samples[i].Dist /= maxDist
		}
		return nil
	})
}
