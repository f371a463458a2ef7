// Package mock provides deterministic test doubles for the embedding
// contract. The embedder maps words to hash buckets so identical text gets
// identical vectors and texts sharing vocabulary score high cosine
// similarity, which is enough for retrieval round-trip tests without any
// network dependency.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/bell/support-rag/internal/embedding"
)

// DefaultDimension keeps test vectors small and cheap to compare.
const DefaultDimension = 64

// Embedder is a deterministic bag-of-words embedder.
type Embedder struct {
	dimension int

	// Err, when set, is returned from every Embed call.
	Err error

	// Calls counts Embed invocations.
	Calls int
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates a mock embedder; dimension <= 0 uses DefaultDimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Dimension reports the configured vector length.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed returns one L2-normalized bag-of-words vector per text. The empty
// string embeds to the zero vector.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	e.Calls++

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *Embedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(e.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
