package stage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
)

type mockChat struct {
	mu      sync.Mutex
	calls   []llm.Request
	respond func(req llm.Request) (string, error)
}

func (m *mockChat) Chat(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.respond(req)
}

func (m *mockChat) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testConfig(chat llm.Client) Config {
	return Config{
		Chat:        chat,
		Model:       "test-model",
		Concurrency: 2,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	}
}

func userContent(req llm.Request) string {
	return req.Messages[len(req.Messages)-1].Content
}

func TestAnalyze_MergesByIndexWithDegradedMiddle(t *testing.T) {
	chat := &mockChat{respond: func(req llm.Request) (string, error) {
		if strings.Contains(userContent(req), "src-b") {
			return "", errors.New("service down")
		}
		return "analysis of " + userContent(req), nil
	}}
	records := []domain.Record{
		{SrcCode: "src-a"},
		{SrcCode: "src-b"},
		{SrcCode: "src-c"},
	}

	out := testConfig(chat).Analyze(context.Background(), records, NewTemplate("$src_code|$tgt_code"))

	if len(out) != 3 {
		t.Fatalf("got %d records", len(out))
	}
	if got := *out[0].Analysis; got != "analysis of src-a|" {
		t.Errorf("record 0 analysis = %q", got)
	}
	if got := *out[1].Analysis; !strings.HasPrefix(got, "Error after 2 attempts:") {
		t.Errorf("record 1 analysis = %q", got)
	}
	if got := *out[2].Analysis; got != "analysis of src-c|" {
		t.Errorf("record 2 analysis = %q", got)
	}
}

func TestAnalyze_EmptyPairSkipsService(t *testing.T) {
	chat := &mockChat{respond: func(llm.Request) (string, error) {
		return "should not be called", nil
	}}

	out := testConfig(chat).Analyze(context.Background(),
		[]domain.Record{{}}, NewTemplate("$src_code"))

	if chat.callCount() != 0 {
		t.Errorf("chat called %d times", chat.callCount())
	}
	if got := *out[0].Analysis; got != "" {
		t.Errorf("analysis = %q, want empty", got)
	}
}

func TestAnalyze_SystemMessageAndTemperature(t *testing.T) {
	chat := &mockChat{respond: func(llm.Request) (string, error) { return "ok", nil }}

	testConfig(chat).Analyze(context.Background(),
		[]domain.Record{{SrcCode: "x"}}, NewTemplate("$src_code"))

	req := chat.calls[0]
	if req.Messages[0].Role != "system" || !strings.Contains(req.Messages[0].Content, "code optimization analysis") {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.Model != "test-model" {
		t.Errorf("model = %q", req.Model)
	}
}

func TestExtractFeatures_TemplateAndEmptyGuard(t *testing.T) {
	chat := &mockChat{respond: func(req llm.Request) (string, error) {
		return "features", nil
	}}
	records := []domain.Record{
		{SrcCode: "int main(){}"},
		{}, // no source, no call
	}

	out := testConfig(chat).ExtractFeatures(context.Background(), records,
		NewTemplate("Extract from:\n$program"))

	if chat.callCount() != 1 {
		t.Fatalf("chat called %d times", chat.callCount())
	}
	if got := userContent(chat.calls[0]); got != "Extract from:\nint main(){}" {
		t.Errorf("prompt = %q", got)
	}
	if *out[0].OptimizedFeatures != "features" {
		t.Errorf("record 0 features = %q", *out[0].OptimizedFeatures)
	}
	if *out[1].OptimizedFeatures != "" {
		t.Errorf("record 1 features = %q", *out[1].OptimizedFeatures)
	}
}

func TestSummarize_PromptAndMerge(t *testing.T) {
	chat := &mockChat{respond: func(req llm.Request) (string, error) {
		return "```txt\ndoes things\n```\n", nil
	}}

	out := testConfig(chat).Summarize(context.Background(),
		[]domain.Record{{SrcCode: "int f();"}})

	prompt := userContent(chat.calls[0])
	if !strings.HasPrefix(prompt, "Summarize the purpose of the following code") {
		t.Errorf("prompt = %q", prompt)
	}
	if !strings.HasSuffix(prompt, "int f();") {
		t.Errorf("prompt = %q", prompt)
	}
	if got := *out[0].Summary; got != "```txt\ndoes things\n```" {
		t.Errorf("summary = %q", got)
	}
}
