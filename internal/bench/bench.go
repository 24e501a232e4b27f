// Package bench times conversation turns across store backends.
package bench

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler runs one conversation turn.
type Handler interface {
	HandleInput(ctx context.Context, input string) (string, error)
}

// Factory builds a fresh handler for backend. The returned cleanup is
// called once the backend's runs are done.
type Factory func(ctx context.Context, backend string) (Handler, func(), error)

// Result holds the timings of one backend.
type Result struct {
	Backend    string
	Timings    []time.Duration
	LastResult string
}

func (r Result) Average() time.Duration {
	if len(r.Timings) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range r.Timings {
		total += d
	}
	return total / time.Duration(len(r.Timings))
}

func (r Result) Min() time.Duration {
	if len(r.Timings) == 0 {
		return 0
	}
	return slices.Min(r.Timings)
}

func (r Result) Max() time.Duration {
	if len(r.Timings) == 0 {
		return 0
	}
	return slices.Max(r.Timings)
}

// Options configure a benchmark run.
type Options struct {
	Backends []string
	Prompts  []string
	Repeat   int // runs of every prompt per backend; values below 1 mean 1
}

// Run benchmarks every backend concurrently. Within a backend, prompts run
// in order on one handler so later turns see the earlier history. The first
// failure cancels the remaining runs.
func Run(ctx context.Context, opts Options, factory Factory) ([]Result, error) {
	repeat := max(opts.Repeat, 1)
	results := make([]Result, len(opts.Backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range opts.Backends {
		g.Go(func() error {
			h, cleanup, err := factory(gctx, backend)
			if err != nil {
				return fmt.Errorf("%s: %w", backend, err)
			}
			if cleanup != nil {
				defer cleanup()
			}

			res := Result{Backend: backend}
			for range repeat {
				for _, prompt := range opts.Prompts {
					start := time.Now()
					out, err := h.HandleInput(gctx, prompt)
					if err != nil {
						return fmt.Errorf("%s: %w", backend, err)
					}
					res.Timings = append(res.Timings, time.Since(start))
					res.LastResult = out
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Report writes one summary line per backend.
func Report(w io.Writer, results []Result) {
	fmt.Fprintln(w, "Benchmark Results:")
	for _, r := range results {
		fmt.Fprintf(w, "%s: avg=%.4fs min=%.4fs max=%.4fs runs=%d\n",
			r.Backend, r.Average().Seconds(), r.Min().Seconds(), r.Max().Seconds(), len(r.Timings))
	}
}
