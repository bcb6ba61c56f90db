package main

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mgomes/livemath/calc"
)

// docOutcome is what one command did to one document.
type docOutcome struct {
	Path    string
	Text    string
	Result  *calc.Result
	Written bool
	Skipped bool
	Err     error
}

// runBatch applies fn to every path with at most jobs documents in flight.
// Outcomes keep the order of paths. Each call gets its own engine run, so
// the documents share nothing.
func runBatch(ctx context.Context, paths []string, jobs int, fn func(ctx context.Context, path string) docOutcome) ([]docOutcome, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Indices are unique per goroutine, so no lock is needed.
	outcomes := make([]docOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outcomes[i] = fn(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
