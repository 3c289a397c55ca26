// Package retrieve answers "which knowledge entries are closest to
// this text" by combining the embedding client with a semantic.Index.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OptForgeAI/optforge-mvp/engine/semantic"
	"github.com/OptForgeAI/optforge-mvp/pkg/fn"
	"github.com/OptForgeAI/optforge-mvp/pkg/ollama"
)

// MatchResult holds the top hits for one query text, best first.
type MatchResult struct {
	Query string
	Hits  []semantic.Hit
}

// Retriever owns the run-lifetime index. BuildIndex must complete
// before Query; afterwards the index is read-only and Query is safe
// to call concurrently.
type Retriever struct {
	embed ollama.Embedder
	index semantic.Index
	dim   int
}

// New creates a Retriever over the given embedder and index backend.
func New(embed ollama.Embedder, index semantic.Index) *Retriever {
	return &Retriever{embed: embed, index: index}
}

// BuildIndex embeds every entry text and loads the index. Entries with
// empty text stay in the table with a zero vector; they score at the
// bottom of every query instead of shifting entry IDs.
func (r *Retriever) BuildIndex(ctx context.Context, entries []semantic.Entry) error {
	texts := fn.Map(entries, func(e semantic.Entry) string { return e.Text })
	vecs, dim, err := r.embedWithZeroFallback(ctx, texts)
	if err != nil {
		return fmt.Errorf("retrieve: embed knowledge base: %w", err)
	}
	r.dim = dim
	if err := r.index.Build(ctx, entries, vecs); err != nil {
		return err
	}
	slog.Info("retrieval index built", "entries", len(entries), "dims", r.dim)
	return nil
}

// Query returns one MatchResult per input text, preserving input
// order. Embeddings are computed in a single batch; batching never
// changes a vector, only the number of round trips.
func (r *Retriever) Query(ctx context.Context, texts []string, k int) ([]MatchResult, error) {
	vecs, _, err := r.embedWithZeroFallback(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed queries: %w", err)
	}

	out := make([]MatchResult, len(texts))
	for i, text := range texts {
		hits, err := r.index.Query(ctx, vecs[i], k)
		if err != nil {
			return nil, fmt.Errorf("retrieve: query %d: %w", i, err)
		}
		out[i] = MatchResult{Query: text, Hits: hits}
	}
	return out, nil
}

// embedWithZeroFallback embeds the non-empty texts in one call and
// fills zero vectors for empty ones locally, so degenerate input never
// hits the embedding service. It returns the vector dimension it saw
// without touching r.dim; only BuildIndex stores it, keeping Query
// free of writes to shared state.
func (r *Retriever) embedWithZeroFallback(ctx context.Context, texts []string) ([][]float32, int, error) {
	nonEmpty := fn.Filter(texts, func(t string) bool { return t != "" })

	dim := r.dim
	var embedded [][]float32
	if len(nonEmpty) > 0 {
		var err error
		embedded, err = r.embed.EmbedBatch(ctx, nonEmpty)
		if err != nil {
			return nil, 0, err
		}
		if dim == 0 && len(embedded) > 0 {
			dim = len(embedded[0])
		}
	}

	out := make([][]float32, len(texts))
	next := 0
	for i, t := range texts {
		if t == "" {
			out[i] = make([]float32, dim)
			continue
		}
		out[i] = embedded[next]
		next++
	}
	return out, dim, nil
}
