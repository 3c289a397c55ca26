package fn

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestBackoffDelay_Bounds(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 4; attempt++ {
		lo := base << uint(attempt-1)
		hi := lo + base/2

		if got := backoffDelay(base, attempt, 0); got != lo {
			t.Errorf("attempt %d u=0: got %v, want %v", attempt, got, lo)
		}
		got := backoffDelay(base, attempt, math.Nextafter(1, 0))
		if got < lo || got >= hi {
			t.Errorf("attempt %d u→1: got %v, want in [%v, %v)", attempt, got, lo, hi)
		}
	}
}

func TestBackoffDelay_CapsGrowth(t *testing.T) {
	if got := backoffDelay(time.Second, 100, 0); got != maxBackoff {
		t.Errorf("got %v, want %v", got, maxBackoff)
	}
}

func TestBackoffDelay_ZeroBase(t *testing.T) {
	if got := backoffDelay(0, 3, 0.7); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestRetry_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	r, attempts := Retry(context.Background(), RetryOpts{MaxAttempts: 4, BaseDelay: time.Microsecond}, func(_ context.Context) Result[int] {
		calls++
		return Err[int](errors.New("always"))
	})
	if r.IsOk() {
		t.Fatal("expected error result")
	}
	if calls != 4 || attempts != 4 {
		t.Errorf("calls=%d attempts=%d, want 4/4", calls, attempts)
	}
}

func TestRetry_ReportsAttemptOfSuccess(t *testing.T) {
	calls := 0
	r, attempts := Retry(context.Background(), RetryOpts{MaxAttempts: 5, BaseDelay: time.Microsecond}, func(_ context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Err[string](errors.New("flaky"))
		}
		return Ok("done")
	})
	if v, _ := r.Unwrap(); v != "done" {
		t.Errorf("value = %q", v)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	r, _ := Retry(ctx, RetryOpts{MaxAttempts: 10, BaseDelay: time.Hour}, func(_ context.Context) Result[int] {
		return Err[int](errors.New("fail fast"))
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
