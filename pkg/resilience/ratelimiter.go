// Package resilience holds the rate limiter and circuit breaker that
// sit between the pipeline and its external services.
package resilience

import (
	"context"
	"sync"
	"time"
)

// LimiterOpts configures the token bucket.
type LimiterOpts struct {
	// Rate is tokens added per second.
	Rate float64
	// Burst is the bucket capacity; values below 1 become 1.
	Burst int
}

// Limiter is a token bucket. The zero value is not usable; call
// NewLimiter.
type Limiter struct {
	mu     sync.Mutex
	opts   LimiterOpts
	tokens float64
	last   time.Time
	now    func() time.Time
}

func NewLimiter(opts LimiterOpts) *Limiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &Limiter{opts: opts, tokens: float64(opts.Burst), now: time.Now}
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Wait blocks until a token is taken or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		short := time.Duration((1 - l.tokens) / l.opts.Rate * float64(time.Second))
		l.mu.Unlock()

		if short < time.Millisecond {
			short = time.Millisecond
		}
		timer := time.NewTimer(short)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill credits tokens for the time elapsed since the last call.
// Caller holds mu.
func (l *Limiter) refill() {
	now := l.now()
	if !l.last.IsZero() {
		l.tokens += now.Sub(l.last).Seconds() * l.opts.Rate
		if max := float64(l.opts.Burst); l.tokens > max {
			l.tokens = max
		}
	}
	l.last = now
}
