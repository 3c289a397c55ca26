package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures retry behavior for unreliable external calls.
type RetryOpts struct {
	// MaxAttempts is the total number of tries, first attempt included.
	MaxAttempts int
	// BaseDelay scales the exponential backoff.
	BaseDelay time.Duration
}

// maxBackoff caps the exponential term so high attempt counts cannot
// overflow the duration.
const maxBackoff = 10 * time.Minute

// backoffDelay computes the sleep before retry attempt k (1-indexed):
// base*2^(k-1) plus a uniform random addition in [0, base/2). The bounded
// jitter desynchronizes retries of items that failed at the same instant.
// u must be in [0, 1).
func backoffDelay(base time.Duration, attempt int, u float64) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d > maxBackoff/2 {
			d = maxBackoff
			break
		}
		d <<= 1
	}
	return d + time.Duration(u*0.5*float64(base))
}

// Retry runs f up to opts.MaxAttempts times, sleeping between attempts
// with exponential backoff and bounded jitter. It returns the last result
// and the number of attempts made. Context cancellation during a backoff
// sleep ends the loop with the context error.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) (Result[T], int) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	var result Result[T]
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result = f(ctx)
		if result.IsOk() || attempt == opts.MaxAttempts {
			return result, attempt
		}

		select {
		case <-ctx.Done():
			return Err[T](ctx.Err()), attempt
		case <-time.After(backoffDelay(opts.BaseDelay, attempt, rand.Float64())):
		}
	}
	return result, opts.MaxAttempts
}
