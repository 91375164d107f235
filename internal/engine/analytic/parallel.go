package analytic

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallelFor calls fn over [0, n) in contiguous chunks of at least minChunk
// indices, on at most workers goroutines. Chunks must not share state. The
// first error cancels the chunks that have not started.
func parallelFor(ctx context.Context, n, minChunk, workers int, fn func(start, end int) error) error {
	if n <= minChunk || workers <= 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, n)
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}
	return g.Wait()
}
