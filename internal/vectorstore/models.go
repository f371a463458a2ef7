package vectorstore

import (
	"strings"
	"time"
)

// collectionPrefix namespaces product collections in the vector store.
const collectionPrefix = "product_"

// Meta is the metadata stamped onto every chunk at ingest time.
type Meta struct {
	FileName   string    `json:"file_name"`
	FileID     string    `json:"file_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Point is one stored chunk: a text span, its embedding and file metadata.
// ChunkID is a deterministic composite assigned by the ingestion pipeline
// and unique within a product collection.
type Point struct {
	ChunkID   string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	Meta      Meta      `json:"metadata"`
}

// ScoredPoint is a Point with its similarity to a query, best-first when
// returned from Query.
type ScoredPoint struct {
	Point
	Score float64 `json:"score"`
}

// CollectionName derives the deterministic collection name for a product.
func CollectionName(productID string) string {
	return collectionPrefix + productID
}

// ProductID recovers the product id from a collection name. The second
// return is false for collections outside the product namespace.
func ProductID(collection string) (string, bool) {
	if !strings.HasPrefix(collection, collectionPrefix) {
		return "", false
	}
	return collection[len(collectionPrefix):], true
}
