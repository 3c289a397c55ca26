package semantic

import "context"

// Index answers nearest-neighbor queries over a fixed table of
// knowledge entries. Build replaces any previous table wholesale;
// there is no incremental update.
type Index interface {
	// Build stores entries with their vectors. vectors[i] belongs to
	// entries[i]; lengths must match.
	Build(ctx context.Context, entries []Entry, vectors [][]float32) error
	// Query returns the k highest-scoring entries for the vector by
	// cosine similarity.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
}
