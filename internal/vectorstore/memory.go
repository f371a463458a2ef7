package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force in-memory Store used for tests and local
// single-process runs. Operations are individually atomic under an RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	dimension   int
	collections map[string][]Point // collection name -> points in insert order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store for the given embedding
// dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension:   dimension,
		collections: make(map[string][]Point),
	}
}

// EnsureCollection creates the product's collection if absent.
func (s *MemoryStore) EnsureCollection(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := CollectionName(productID)
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = []Point{}
	}
	return nil
}

// Add appends points to the product's collection, rejecting duplicate chunk
// ids before anything is written.
func (s *MemoryStore) Add(ctx context.Context, productID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := CollectionName(productID)
	existing := make(map[string]struct{}, len(s.collections[name]))
	for _, p := range s.collections[name] {
		existing[p.ChunkID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(points))
	for i, p := range points {
		if p.ChunkID == "" || p.Text == "" {
			return ErrLengthMismatch
		}
		if len(p.Embedding) != s.dimension {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Embedding), s.dimension)
		}
		if _, dup := existing[p.ChunkID]; dup {
			return fmt.Errorf("%w: %s", ErrIngestConflict, p.ChunkID)
		}
		if _, dup := seen[p.ChunkID]; dup {
			return fmt.Errorf("%w: %s repeated in batch", ErrIngestConflict, p.ChunkID)
		}
		seen[p.ChunkID] = struct{}{}
	}

	s.collections[name] = append(s.collections[name], points...)
	return nil
}

// GetAll returns every point without embeddings, sorted by chunk id.
func (s *MemoryStore) GetAll(ctx context.Context, productID string) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.collections[CollectionName(productID)]
	points := make([]Point, len(stored))
	for i, p := range stored {
		p.Embedding = nil
		points[i] = p
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ChunkID < points[j].ChunkID })
	return points, nil
}

// Query scores every point by cosine similarity and returns the top k.
func (s *MemoryStore) Query(ctx context.Context, productID string, embedding []float32, k int) ([]ScoredPoint, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if k <= 0 {
		return []ScoredPoint{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.collections[CollectionName(productID)]
	scored := make([]ScoredPoint, 0, len(stored))
	for _, p := range stored {
		score := cosineSimilarity(embedding, p.Embedding)
		p.Embedding = nil
		scored = append(scored, ScoredPoint{Point: p, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Delete removes the listed chunk ids; absent ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, productID string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := CollectionName(productID)
	stored, ok := s.collections[name]
	if !ok {
		return nil
	}

	drop := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		drop[id] = struct{}{}
	}

	kept := stored[:0]
	for _, p := range stored {
		if _, gone := drop[p.ChunkID]; !gone {
			kept = append(kept, p)
		}
	}
	s.collections[name] = kept
	return nil
}

// DeleteCollection removes the product's collection entirely.
func (s *MemoryStore) DeleteCollection(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, CollectionName(productID))
	return nil
}

// ListCollections returns product ids in sorted order.
func (s *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var products []string
	for name := range s.collections {
		if id, ok := ProductID(name); ok {
			products = append(products, id)
		}
	}
	sort.Strings(products)
	return products, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Zero-norm vectors score 0.0 instead of producing a division error.
func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
