package matrix

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the smallest N at which MulVecT fans out.
const parallelThreshold = 256

// forColumnBlocks calls fn on disjoint [lo, hi) column ranges covering
// [0, n). Ranges run concurrently on up to workers goroutines when n is
// large enough.
func forColumnBlocks(ctx context.Context, n, workers int, fn func(lo, hi int)) error {
	if workers <= 1 || n < parallelThreshold {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(0, n)
		return nil
	}

	size := (n + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		lo, hi := lo, min(lo+size, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(lo, hi)
			return nil
		})
	}
	return g.Wait()
}
