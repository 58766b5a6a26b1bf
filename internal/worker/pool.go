// Package worker runs independent store requests with bounded parallelism.
// Each item succeeds or fails on its own; nothing is rolled back.
package worker

import (
	"context"
	"sync"
	"time"
)

// Result holds the outcome of a single item.
type Result[T any] struct {
	Index    int
	Value    T
	Err      error
	Duration time.Duration
}

// Pool limits how many requests are in flight at once.
type Pool struct {
	maxWorkers int
}

// DefaultWorkers is used when a pool is created with a non-positive size.
const DefaultWorkers = 4

// NewPool creates a pool with up to maxWorkers concurrent requests.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers
	}
	return &Pool{maxWorkers: maxWorkers}
}

// Size returns the configured concurrency.
func (p *Pool) Size() int { return p.maxWorkers }

// Run calls fn for every item, up to Size at a time, and returns one result
// per item in input order. Items not started before ctx is done fail with
// ctx.Err(); items already started run to completion.
func Run[I, O any](ctx context.Context, p *Pool, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	if p == nil {
		p = NewPool(0)
	}
	if p.maxWorkers <= 1 || len(items) <= 1 {
		return runSequential(ctx, items, fn)
	}
	return runParallel(ctx, p.maxWorkers, items, fn)
}

func runSequential[I, O any](ctx context.Context, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	results := make([]Result[O], len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results[i] = Result[O]{Index: i, Err: err}
			continue
		}
		results[i] = execute(ctx, i, item, fn)
	}
	return results
}

func runParallel[I, O any](ctx context.Context, maxWorkers int, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	results := make([]Result[O], len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results[i] = Result[O]{Index: i, Err: err}
			continue
		}
		select {
		case sem <- struct{}{}: // Acquire worker slot.
		case <-ctx.Done():
			results[i] = Result[O]{Index: i, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func(idx int, it I) {
			defer wg.Done()
			defer func() { <-sem }() // Release worker slot.
			results[idx] = execute(ctx, idx, it, fn)
		}(i, item)
	}

	wg.Wait()
	return results
}

func execute[I, O any](ctx context.Context, idx int, item I, fn func(context.Context, I) (O, error)) Result[O] {
	start := time.Now()
	v, err := fn(ctx, item)
	return Result[O]{Index: idx, Value: v, Err: err, Duration: time.Since(start)}
}

// Failed returns the results that carry an error.
func Failed[O any](results []Result[O]) []Result[O] {
	var out []Result[O]
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
