package stage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
)

const analyzeSystem = "You are a helpful assistant for code optimization analysis."

// Analyze asks the model what optimization-relevant conditions each
// source/target pair exhibits and writes the answer into the analysis
// field. Records where both codes are empty skip the service and get
// an empty analysis.
func (c Config) Analyze(ctx context.Context, records []domain.Record, tmpl *Template) []domain.Record {
	slog.Info("analyze stage starting", "records", len(records), "model", c.Model)

	out := c.chatBatch(ctx, "analyze", len(records), func(i int) (llm.Request, bool) {
		r := records[i]
		if r.SrcCode == "" && r.TgtCode == "" {
			return llm.Request{}, false
		}
		prompt := tmpl.Render(map[string]string{
			"src_code": r.SrcCode,
			"tgt_code": r.TgtCode,
		})
		return llm.Request{
			Model:       c.Model,
			Temperature: 0.7,
			Messages: []llm.Message{
				{Role: "system", Content: analyzeSystem},
				{Role: "user", Content: prompt},
			},
		}, true
	})

	result := make([]domain.Record, len(records))
	for i, o := range out {
		rec := records[i]
		if o.Failed() {
			rec.SetAnalysis(degradedText(o))
		} else {
			rec.SetAnalysis(strings.TrimSpace(o.Value))
		}
		result[i] = rec
	}
	slog.Info("analyze stage done", "records", len(result))
	return result
}
