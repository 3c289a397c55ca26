package llm

import (
	"context"

	"github.com/OptForgeAI/optforge-mvp/pkg/resilience"
)

type breakerClient struct {
	inner Client
	b     *resilience.Breaker
}

// WithBreaker wraps a Client with a circuit breaker so a hard service
// outage fails fast instead of holding worker slots through full
// retry ladders.
func WithBreaker(c Client, b *resilience.Breaker) Client {
	return &breakerClient{inner: c, b: b}
}

func (c *breakerClient) Chat(ctx context.Context, req Request) (string, error) {
	var out string
	err := c.b.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.inner.Chat(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
