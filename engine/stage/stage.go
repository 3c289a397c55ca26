// Package stage composes the pipeline phases: each stage builds one
// chat request per record, fans the batch out through the executor,
// and merges results back by index. A failed item degrades to an error
// string in its output field; only precondition violations (misaligned
// side files) abort a run.
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/OptForgeAI/optforge-mvp/pkg/fn"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
	"github.com/OptForgeAI/optforge-mvp/pkg/metrics"
)

// Config carries the shared stage dependencies. Progress and Metrics
// are optional.
type Config struct {
	Chat        llm.Client
	Model       string
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration
	Progress    func(completed, total int)
	Metrics     *metrics.Registry
}

func (c Config) execOpts() fn.ExecOpts {
	return fn.ExecOpts{
		Concurrency: c.Concurrency,
		Retry:       fn.RetryOpts{MaxAttempts: c.MaxAttempts, BaseDelay: c.BaseDelay},
	}
}

// chatBatch runs one chat call per index. build may decline an index
// (empty input records skip the service and succeed with ""). Returned
// content is raw; stages trim where their output format wants it.
func (c Config) chatBatch(ctx context.Context, name string, n int, build func(i int) (llm.Request, bool)) []fn.Outcome[string] {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}

	var (
		callSeconds *metrics.Histogram
		inflight    *metrics.Gauge
	)
	if c.Metrics != nil {
		c.Metrics.Counter(metrics.WithLabels("pipeline_records_total", "stage", name),
			"Records submitted per stage").Add(int64(n))
		callSeconds = c.Metrics.Histogram(metrics.WithLabels("pipeline_call_seconds", "stage", name),
			"Chat call duration", nil)
		inflight = c.Metrics.Gauge(metrics.WithLabels("pipeline_inflight", "stage", name),
			"Chat calls currently in flight")
	}

	op := func(ctx context.Context, i int) fn.Result[string] {
		req, ok := build(i)
		if !ok {
			return fn.Ok("")
		}
		if inflight != nil {
			inflight.Inc()
			defer inflight.Dec()
		}
		start := time.Now()
		text, err := c.Chat.Chat(ctx, req)
		if callSeconds != nil {
			callSeconds.Since(start)
		}
		if err != nil {
			return fn.Err[string](err)
		}
		return fn.Ok(text)
	}

	out := fn.Execute(ctx, items, c.execOpts(), op, c.Progress)

	if c.Metrics != nil {
		failed := int64(0)
		for _, o := range out {
			if o.Failed() {
				failed++
			}
		}
		c.Metrics.Counter(metrics.WithLabels("pipeline_failures_total", "stage", name),
			"Records whose retries were exhausted").Add(failed)
	}
	return out
}

// degradedText is the value written into a stage field when an item
// exhausted its retries.
func degradedText(o fn.Outcome[string]) string {
	return fmt.Sprintf("Error after %d attempts: %v", o.Attempts, o.Err)
}
