//go:build integration

package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationDim = 1536

// setupQdrant creates a test store. Skips the test if Qdrant is not running.
func setupQdrant(t *testing.T) *QdrantStore {
	store, err := NewQdrantStore("localhost", 6334, integrationDim)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	return store
}

func fullEmbedding(fill float32) []float32 {
	embedding := make([]float32, integrationDim)
	for i := range embedding {
		embedding[i] = fill
	}
	return embedding
}

func TestQdrant_AddQueryRoundTrip(t *testing.T) {
	store := setupQdrant(t)
	defer store.Close()

	ctx := context.Background()
	productID := "it-" + uuid.New().String()
	defer store.DeleteCollection(ctx, productID)

	require.NoError(t, store.EnsureCollection(ctx, productID))

	point := Point{
		ChunkID:   productID + "_f1_0",
		Text:      "The warranty covers manufacturing defects for two years.",
		Embedding: fullEmbedding(0.1),
		Meta: Meta{
			FileName:   "warranty.md",
			FileID:     "f1",
			UploadedAt: time.Now().UTC().Truncate(time.Second),
		},
	}
	require.NoError(t, store.Add(ctx, productID, []Point{point}))

	results, err := store.Query(ctx, productID, fullEmbedding(0.1), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, point.ChunkID, got.ChunkID)
	assert.Equal(t, point.Text, got.Text)
	assert.Equal(t, point.Meta.FileName, got.Meta.FileName)
	assert.Equal(t, point.Meta.FileID, got.Meta.FileID)
	assert.WithinDuration(t, point.Meta.UploadedAt, got.Meta.UploadedAt, time.Second)
	assert.Greater(t, got.Score, 0.9)
}

func TestQdrant_DuplicateIDConflict(t *testing.T) {
	store := setupQdrant(t)
	defer store.Close()

	ctx := context.Background()
	productID := "it-" + uuid.New().String()
	defer store.DeleteCollection(ctx, productID)

	require.NoError(t, store.EnsureCollection(ctx, productID))

	point := Point{
		ChunkID:   productID + "_f1_0",
		Text:      "chunk",
		Embedding: fullEmbedding(0.2),
		Meta:      Meta{FileName: "a.txt", FileID: "f1", UploadedAt: time.Now().UTC()},
	}
	require.NoError(t, store.Add(ctx, productID, []Point{point}))

	err := store.Add(ctx, productID, []Point{point})
	assert.ErrorIs(t, err, ErrIngestConflict)
}

func TestQdrant_MissingCollectionReads(t *testing.T) {
	store := setupQdrant(t)
	defer store.Close()

	ctx := context.Background()
	productID := "never-ingested-" + uuid.New().String()

	points, err := store.GetAll(ctx, productID)
	require.NoError(t, err)
	assert.Empty(t, points)

	results, err := store.Query(ctx, productID, fullEmbedding(0.3), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQdrant_DeleteAndCollectionLifecycle(t *testing.T) {
	store := setupQdrant(t)
	defer store.Close()

	ctx := context.Background()
	productID := "it-" + uuid.New().String()

	require.NoError(t, store.EnsureCollection(ctx, productID))
	require.NoError(t, store.Add(ctx, productID, []Point{{
		ChunkID:   productID + "_f1_0",
		Text:      "to be deleted",
		Embedding: fullEmbedding(0.4),
		Meta:      Meta{FileName: "gone.txt", FileID: "f1", UploadedAt: time.Now().UTC()},
	}}))

	require.NoError(t, store.Delete(ctx, productID, []string{productID + "_f1_0", "absent-id"}))

	points, err := store.GetAll(ctx, productID)
	require.NoError(t, err)
	assert.Empty(t, points)

	require.NoError(t, store.DeleteCollection(ctx, productID))

	products, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.NotContains(t, products, productID)
}

func TestQdrant_DimensionValidation(t *testing.T) {
	store := setupQdrant(t)
	defer store.Close()

	ctx := context.Background()
	productID := "it-" + uuid.New().String()
	defer store.DeleteCollection(ctx, productID)

	require.NoError(t, store.EnsureCollection(ctx, productID))

	err := store.Add(ctx, productID, []Point{{
		ChunkID:   "wrong",
		Text:      "wrong dimension",
		Embedding: make([]float32, 8),
		Meta:      Meta{FileName: "w.txt", FileID: "f1", UploadedAt: time.Now().UTC()},
	}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.Query(ctx, productID, make([]float32, 8), 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
