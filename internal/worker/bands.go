package worker

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Band is a half-open range of rows [Lo, Hi).
type Band struct {
	Lo, Hi int
}

// Split divides rows into at most n contiguous bands of near-equal size.
func Split(rows, n int) []Band {
	if rows <= 0 {
		return nil
	}
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > rows {
		n = rows
	}
	bands := make([]Band, n)
	size, rem := rows/n, rows%n
	lo := 0
	for i := range bands {
		hi := lo + size
		if i < rem {
			hi++
		}
		bands[i] = Band{Lo: lo, Hi: hi}
		lo = hi
	}
	return bands
}

// Pool runs row-band work with a bounded number of goroutines.
type Pool struct {
	workers int
}

// NewPool returns a pool running at most workers bands at once.
// Zero or negative means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Rows splits rows into bands and calls fn for each, concurrently.
// fn receives the band's index so callers can keep per-band results.
// The first error cancels ctx for the remaining bands and is returned.
func (p *Pool) Rows(ctx context.Context, rows int, fn func(ctx context.Context, idx int, b Band) error) error {
	bands := Split(rows, p.workers)
	if len(bands) == 1 {
		return fn(ctx, 0, bands[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, b := range bands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i, b)
		})
	}
	return g.Wait()
}

// Bands returns how many bands Rows will use for the given row count.
func (p *Pool) Bands(rows int) int {
	return len(Split(rows, p.workers))
}
