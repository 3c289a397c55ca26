package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/engine/extract"
	"github.com/OptForgeAI/optforge-mvp/engine/knowledge"
	"github.com/OptForgeAI/optforge-mvp/engine/retrieve"
)

// matchEntry is one matched feature in the output payload. Key names
// follow the knowledge-base format so downstream consumers see one
// vocabulary.
type matchEntry struct {
	Conditions []string `json:"Unoptimized Code Conditions"`
	Operations []string `json:"Optimization Operation"`
}

// Match annotates each record with the top-k recommended operations
// for every feature found in its optimized_features payload. The match
// list lands in the analysis field as an indented JSON array inside a
// json fence. The retriever's index must already be built. No
// generative-model calls happen here; an error means the embedding
// service failed, which is batch-fatal.
func Match(ctx context.Context, r *retrieve.Retriever, records []domain.Record, topK int) ([]domain.Record, error) {
	slog.Info("match stage starting", "records", len(records), "top_k", topK)

	// Features across all records are embedded in one batch; starts[i]
	// marks where record i's queries begin.
	var queries []string
	conditions := make([][][]string, len(records))
	starts := make([]int, len(records))
	for i, rec := range records {
		starts[i] = len(queries)
		for _, conds := range recordFeatures(rec) {
			conditions[i] = append(conditions[i], conds)
			queries = append(queries, strings.Join(conds, " "))
		}
	}

	results, err := r.Query(ctx, queries, topK)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Record, len(records))
	for i, rec := range records {
		entries := make([]matchEntry, 0, len(conditions[i]))
		for j, conds := range conditions[i] {
			hits := results[starts[i]+j].Hits
			ops := make([]string, len(hits))
			for h, hit := range hits {
				ops[h] = hit.Operation
			}
			entries = append(entries, matchEntry{Conditions: conds, Operations: ops})
		}
		rec.SetAnalysis("```json\n" + marshalIndented(entries) + "\n```")
		out[i] = rec
	}
	slog.Info("match stage done", "records", len(out), "queries", len(queries))
	return out, nil
}

// recordFeatures parses a record's optimized_features payload and
// returns the condition list of each well-formed feature. Payloads
// that do not parse to a list, and list elements without a condition
// key, contribute nothing: the record still flows through with an
// empty match list.
func recordFeatures(rec domain.Record) [][]string {
	v := extract.JSON(rec.FeaturesText())
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out [][]string
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw, ok := m[knowledge.KeyConditions]
		if !ok {
			continue
		}
		var conds []string
		if items, ok := raw.([]any); ok {
			for _, c := range items {
				if s, ok := c.(string); ok {
					conds = append(conds, s)
				}
			}
		}
		if conds == nil {
			conds = []string{}
		}
		out = append(out, conds)
	}
	return out
}

func marshalIndented(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
