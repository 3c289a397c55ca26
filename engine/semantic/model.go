// Package semantic holds the vector index over the optimization
// knowledge base. The index is built once per run from scratch and is
// read-only afterwards, so concurrent queries need no locking.
package semantic

// Entry is one knowledge-base item: the condition text that gets
// embedded, and the optimization operation recommended when code
// matches it. ID is the entry's dense position in the table.
type Entry struct {
	ID        int
	Text      string
	Operation string
}

// Hit is a single nearest-neighbor result.
type Hit struct {
	ID        int
	Score     float32
	Text      string
	Operation string
}
