// Package embedding converts text into fixed-length vectors for similarity
// search.
package embedding

import "context"

// Embedder converts text into fixed-length vectors. Implementations must be
// deterministic per deployment: the same text always yields the same vector.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the vector length produced by this embedder.
	Dimension() int
}
