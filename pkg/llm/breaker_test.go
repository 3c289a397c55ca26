package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OptForgeAI/optforge-mvp/pkg/resilience"
)

type stubClient struct {
	calls int
	err   error
}

func (s *stubClient) Chat(context.Context, Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "content", nil
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	stub := &stubClient{}
	c := WithBreaker(stub, resilience.NewBreaker(resilience.DefaultBreakerOpts))
	got, err := c.Chat(context.Background(), Request{Model: "m"})
	if err != nil || got != "content" {
		t.Errorf("got (%q, %v)", got, err)
	}
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	stub := &stubClient{err: errors.New("down")}
	c := WithBreaker(stub, resilience.NewBreaker(resilience.BreakerOpts{
		FailThreshold: 2,
		Timeout:       time.Minute,
	}))

	c.Chat(context.Background(), Request{})
	c.Chat(context.Background(), Request{})
	_, err := c.Chat(context.Background(), Request{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("err = %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("inner called %d times after breaker opened", stub.calls)
	}
}
