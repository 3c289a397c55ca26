package stage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
)

const summarizePrompt = "Summarize the purpose of the following code and place the summary in a txt code block without outputting other content.\n"

// Summarize asks the model for a short purpose summary of each
// record's source code and writes it into the summary field.
func (c Config) Summarize(ctx context.Context, records []domain.Record) []domain.Record {
	slog.Info("summarize stage starting", "records", len(records), "model", c.Model)

	out := c.chatBatch(ctx, "summarize", len(records), func(i int) (llm.Request, bool) {
		return llm.Request{
			Model: c.Model,
			Messages: []llm.Message{
				{Role: "user", Content: summarizePrompt + records[i].SrcCode},
			},
		}, true
	})

	result := make([]domain.Record, len(records))
	for i, o := range out {
		rec := records[i]
		if o.Failed() {
			rec.SetSummary(degradedText(o))
		} else {
			rec.SetSummary(strings.TrimSpace(o.Value))
		}
		result[i] = rec
	}
	slog.Info("summarize stage done", "records", len(result))
	return result
}
