// Package vectorstore provides the per-product collection abstraction over
// embedded chunks, with a Qdrant-backed implementation for deployments and
// an in-memory implementation for tests and local runs.
package vectorstore

import "context"

// Store is the per-product vector collection contract.
//
// Read operations treat a missing collection as "product has no documents"
// and return empty results, never an error.
type Store interface {
	// EnsureCollection creates the product's collection if absent.
	// Idempotent - safe to call multiple times.
	EnsureCollection(ctx context.Context, productID string) error

	// Add stores points in the product's collection. Every point needs a
	// chunk id and an embedding of the store's dimension. A chunk id that
	// already exists in the collection fails with ErrIngestConflict and
	// writes nothing.
	Add(ctx context.Context, productID string, points []Point) error

	// GetAll returns every point in the collection with metadata, without
	// embeddings. Missing or empty collections return an empty slice.
	GetAll(ctx context.Context, productID string) ([]Point, error)

	// Query returns the k nearest points to the embedding by cosine
	// similarity, best-first. Collections holding fewer than k points
	// return all of them.
	Query(ctx context.Context, productID string, embedding []float32, k int) ([]ScoredPoint, error)

	// Delete removes the listed chunk ids; absent ids are ignored.
	Delete(ctx context.Context, productID string, chunkIDs []string) error

	// DeleteCollection hard-deletes the product's collection. Callers
	// confirm the collection holds zero chunks before invoking this.
	DeleteCollection(ctx context.Context, productID string) error

	// ListCollections returns the product ids that currently have a
	// collection.
	ListCollections(ctx context.Context) ([]string, error)
}
