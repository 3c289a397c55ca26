package stage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
)

const extractSystem = "You are an expert C/C++ assistant that extracts optimization features from unoptimized code versions."

// ExtractFeatures asks the model for the optimization features of each
// record's source code and writes the raw answer into the
// optimized_features field. Records with no source code skip the
// service.
func (c Config) ExtractFeatures(ctx context.Context, records []domain.Record, tmpl *Template) []domain.Record {
	slog.Info("extract stage starting", "records", len(records), "model", c.Model)

	out := c.chatBatch(ctx, "extract", len(records), func(i int) (llm.Request, bool) {
		r := records[i]
		if r.SrcCode == "" {
			return llm.Request{}, false
		}
		prompt := tmpl.Render(map[string]string{"program": r.SrcCode})
		return llm.Request{
			Model: c.Model,
			Messages: []llm.Message{
				{Role: "system", Content: extractSystem},
				{Role: "user", Content: prompt},
			},
		}, true
	})

	result := make([]domain.Record, len(records))
	for i, o := range out {
		rec := records[i]
		if o.Failed() {
			rec.SetOptimizedFeatures(degradedText(o))
		} else {
			rec.SetOptimizedFeatures(strings.TrimSpace(o.Value))
		}
		result[i] = rec
	}
	slog.Info("extract stage done", "records", len(result))
	return result
}
