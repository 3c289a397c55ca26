package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Memory is the in-process Index. Vectors are L2-normalized at build
// time so a query is a dot product per entry; ties are broken by
// ascending entry ID to keep results deterministic.
type Memory struct {
	entries []Entry
	vecs    [][]float32
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{}
}

// Build implements Index.
func (m *Memory) Build(_ context.Context, entries []Entry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("semantic: %d entries but %d vectors", len(entries), len(vectors))
	}
	m.entries = entries
	m.vecs = make([][]float32, len(vectors))
	for i, v := range vectors {
		m.vecs[i] = normalize(v)
	}
	return nil
}

// Query implements Index.
func (m *Memory) Query(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	q := normalize(vector)

	hits := make([]Hit, len(m.entries))
	for i, e := range m.entries {
		hits[i] = Hit{
			ID:        e.ID,
			Score:     dot(q, m.vecs[i]),
			Text:      e.Text,
			Operation: e.Operation,
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// normalize returns v scaled to unit length. A zero-magnitude vector
// comes back unchanged and scores 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
