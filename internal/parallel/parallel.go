// Package parallel provides the data-parallel fan-out used by kernels and the
// reference engine.
//
// Every helper here is a map over independent indices: each call of f must
// read whatever it likes but write only locations owned by its own index, so
// no locking is needed.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a config that runs everything on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// chunks splits [0, n) into contiguous ranges and runs body on each range,
// concurrently when cfg allows it.
func chunks(n int, cfg Config, body func(start, end int)) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		body(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			body(s, e)
		}(start, end)
	}
	wg.Wait()
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	chunks(n, cfg, func(s, e int) {
		for i := s; i < e; i++ {
			f(i)
		}
	})
}

// ForBatch is For over the batch*channels iteration pattern.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	if channels <= 0 {
		return
	}
	For(batch*channels, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}

// For2D executes f(i, j) for every i in [0, d0) and j in [0, d1).
func For2D(d0, d1 int, f func(i, j int), cfg Config) {
	ForBatch(d0, d1, f, cfg)
}

// ForND executes f(idx) for every multi-index idx of the index space dims,
// iterated in row-major order within each chunk.
//
// The idx slice is owned by the worker and reused between calls; f must copy
// it if it needs to keep it. An empty or zero-extent index space is a no-op.
func ForND(dims []int, f func(idx []int), cfg Config) {
	total := 1
	for _, d := range dims {
		if d <= 0 {
			return
		}
		total *= d
	}

	chunks(total, cfg, func(s, e int) {
		idx := make([]int, len(dims))
		unravel(s, dims, idx)
		for i := s; i < e; i++ {
			f(idx)
			increment(idx, dims)
		}
	})
}

// unravel writes the row-major multi-index of flat into idx.
func unravel(flat int, dims, idx []int) {
	for d := len(dims) - 1; d >= 0; d-- {
		idx[d] = flat % dims[d]
		flat /= dims[d]
	}
}

// increment advances idx to the next row-major position.
func increment(idx, dims []int) {
	for d := len(dims) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < dims[d] {
			return
		}
		idx[d] = 0
	}
}
