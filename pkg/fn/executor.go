package fn

import (
	"context"
	"sync"
)

// ExecOpts configures a batch execution run.
type ExecOpts struct {
	// Concurrency bounds the number of in-flight operations. Items beyond
	// the gate wait without spawning additional resource pressure.
	Concurrency int
	// Retry applies per item; an item whose attempts are exhausted yields
	// a degraded Outcome, never a batch error.
	Retry RetryOpts
}

// Outcome is the per-item result of a batch execution. Exactly one of
// Value and Err is meaningful.
type Outcome[R any] struct {
	Index    int
	Value    R
	Err      error
	Attempts int
}

// Failed reports whether the item exhausted its attempts.
func (o Outcome[R]) Failed() bool { return o.Err != nil }

// Execute runs op over items under bounded concurrency with per-item
// retry, and returns one Outcome per item with output order equal to
// input order regardless of completion order. Each completed item writes
// only its own index slot, so collection needs no further ordering pass.
// onProgress, if non-nil, is invoked once per completed item whether it
// succeeded or not.
func Execute[T, R any](ctx context.Context, items []T, opts ExecOpts, op func(context.Context, T) Result[R], onProgress func(completed, total int)) []Outcome[R] {
	out := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return out
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = len(items)
	}

	var (
		wg        sync.WaitGroup
		progMu    sync.Mutex
		completed int
	)
	sem := make(chan struct{}, workers)

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer func() { <-sem; wg.Done() }()

			result, attempts := Retry(ctx, opts.Retry, func(ctx context.Context) Result[R] {
				return op(ctx, item)
			})

			v, err := result.Unwrap()
			out[i] = Outcome[R]{Index: i, Value: v, Err: err, Attempts: attempts}

			if onProgress != nil {
				progMu.Lock()
				completed++
				done := completed
				progMu.Unlock()
				onProgress(done, len(items))
			}
		}(i, item)
	}
	wg.Wait()
	return out
}
