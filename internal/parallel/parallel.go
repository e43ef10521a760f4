// Package parallel provides fork-join helpers for running independent work
// items, such as hyperparameter trials, on several goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	return Workers(runtime.NumCPU())
}

// Workers returns a configuration running one item per goroutine on at most
// n goroutines. n <= 0 selects the CPU count; n == 1 runs sequentially.
func Workers(n int) Config {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Map applies f to every item and returns the results in item order,
// regardless of the order in which workers finish.
//
// Items not yet started when ctx is cancelled are skipped. Map waits for
// every started item, then returns the error of the lowest-indexed failed
// item, or ctx.Err() if items were skipped.
func Map[T, R any](ctx context.Context, items []T, f func(ctx context.Context, i int, item T) (R, error), cfg Config) ([]R, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	For(len(items), func(i int) {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		results[i], errs[i] = f(ctx, i, items[i])
	}, cfg)

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
