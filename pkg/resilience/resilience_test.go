package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_AllowRespectsBurst(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 2})
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst tokens should be available")
	}
	if l.Allow() {
		t.Error("third call should be limited")
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1000, Burst: 1})
	l.Allow()
	fake := time.Now()
	l.now = func() time.Time { return fake }
	fake = fake.Add(10 * time.Millisecond)
	if !l.Allow() {
		t.Error("token should have refilled")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.0001, Burst: 1})
	l.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	fail := func(context.Context) error { return errors.New("down") }

	b.Call(context.Background(), fail)
	b.Call(context.Background(), fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Call(context.Background(), fail); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v", err)
	}
}

func TestBreaker_PassesErrorThroughWhileClosed(t *testing.T) {
	b := NewBreaker(DefaultBreakerOpts)
	sentinel := errors.New("bad gateway")
	err := b.Call(context.Background(), func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the call's own error", err)
	}
}

func TestBreaker_HalfOpenProbeRecovers(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	fake := time.Now()
	b.now = func() time.Time { return fake }

	b.Call(context.Background(), func(context.Context) error { return errors.New("down") })
	fake = fake.Add(2 * time.Minute)

	err := b.Call(context.Background(), func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	fake := time.Now()
	b.now = func() time.Time { return fake }

	fail := func(context.Context) error { return errors.New("down") }
	b.Call(context.Background(), fail)
	fake = fake.Add(2 * time.Minute)
	b.Call(context.Background(), fail)

	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
}
