// Package knowledge loads the optimization knowledge base: records
// whose analysis field holds a structured list of (code conditions,
// recommended operation) pairs, usually wrapped in a fenced block by
// the model that produced them.
package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/engine/extract"
	"github.com/OptForgeAI/optforge-mvp/engine/semantic"
	"github.com/OptForgeAI/optforge-mvp/pkg/fn"
	"github.com/OptForgeAI/optforge-mvp/pkg/jsonl"
)

// Payload keys inside an analysis entry.
const (
	KeyConditions = "Unoptimized Code Conditions"
	KeyOperation  = "Optimization Operation"
)

// Load reads the knowledge-base file and flattens it into entries.
func Load(path string) ([]semantic.Entry, error) {
	records, err := jsonl.Read[domain.Record](path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}
	entries := FromRecords(records)
	slog.Info("knowledge base loaded", "path", path, "records", len(records), "entries", len(entries))
	return entries, nil
}

// FromRecords flattens each record's analysis payload. A record whose
// payload parses as a list contributes one entry per element, with the
// condition texts joined by spaces. Anything else degrades to a single
// entry holding the payload as text with no operation, so a malformed
// record still occupies the table instead of killing the run.
func FromRecords(records []domain.Record) []semantic.Entry {
	var entries []semantic.Entry
	for i, rec := range records {
		v := extract.JSON(rec.AnalysisText())
		list, ok := v.([]any)
		if !ok {
			entries = append(entries, semantic.Entry{
				ID:   len(entries),
				Text: stringify(v),
			})
			continue
		}
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				slog.Warn("knowledge: skipping non-object analysis entry", "record", i)
				continue
			}
			op, _ := m[KeyOperation].(string)
			entries = append(entries, semantic.Entry{
				ID:        len(entries),
				Text:      JoinConditions(m[KeyConditions]),
				Operation: op,
			})
		}
	}
	return entries
}

// JoinConditions flattens a condition list into the single text that
// gets embedded.
func JoinConditions(v any) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := fn.FilterMap(list, func(c any) (string, bool) {
		s, ok := c.(string)
		return s, ok
	})
	return strings.Join(parts, " ")
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
