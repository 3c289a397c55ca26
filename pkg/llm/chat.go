// Package llm provides a client for OpenAI-compatible chat-completion
// endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Client is the chat surface the pipeline stages depend on.
type Client interface {
	Chat(ctx context.Context, req Request) (string, error)
}

// Message is one role-tagged entry in a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single chat completion call.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// HTTP implements Client against a /chat/completions endpoint.
type HTTP struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a chat client. interval > 0 paces requests to at most
// one per interval; credentials are optional for local endpoints.
func New(baseURL, apiKey string, interval time.Duration) *HTTP {
	c := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(nil),
			Timeout:   5 * time.Minute,
		},
	}
	if interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return c
}

// Chat sends the request and returns the first choice's content. Any
// transport failure, non-2xx status, or empty choice list is an error;
// callers treat all of them as retryable.
func (c *HTTP) Chat(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm chat: encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm chat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm chat decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm chat: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
