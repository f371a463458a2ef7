package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements Store on a Qdrant server over gRPC, one Qdrant
// collection per product.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore creates a Qdrant-backed store with health validation.
// It performs a health check with retry on startup and fails fast if the
// server is unreachable.
func NewQdrantStore(host string, port, dimension int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client:    client,
		dimension: dimension,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health checks with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureCollection creates the product's collection with cosine distance if
// it does not exist, plus a payload index on file_id for deletion scans.
func (s *QdrantStore) EnsureCollection(ctx context.Context, productID string) error {
	name := CollectionName(productID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	// Without this index, filtering delete scans by file_id is much slower.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      "file_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create file_id index: %w", err)
	}

	return nil
}

// Add stores points in the product's collection, batched in groups of 100.
// Chunk ids already present in the collection fail the whole call with
// ErrIngestConflict before anything is written.
func (s *QdrantStore) Add(ctx context.Context, productID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	name := CollectionName(productID)

	ids := make([]*qdrant.PointId, len(points))
	for i, p := range points {
		if p.ChunkID == "" || p.Text == "" {
			return ErrLengthMismatch
		}
		if len(p.Embedding) != s.dimension {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Embedding), s.dimension)
		}
		ids[i] = pointID(p.ChunkID)
	}

	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: name,
		Ids:            ids,
	})
	if err != nil {
		return fmt.Errorf("failed to check existing points: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %d of %d ids already stored for product %s",
			ErrIngestConflict, len(existing), len(points), productID)
	}

	batchSize := 100
	for i := 0; i < len(points); i += batchSize {
		end := min(i+batchSize, len(points))
		batch := make([]*qdrant.PointStruct, 0, end-i)
		for _, p := range points[i:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id:      pointID(p.ChunkID),
				Vectors: qdrant.NewVectors(p.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"chunk_id":    p.ChunkID,
					"content":     p.Text,
					"file_name":   p.Meta.FileName,
					"file_id":     p.Meta.FileID,
					"uploaded_at": p.Meta.UploadedAt.Format(time.RFC3339),
				}),
			})
		}
		if err := s.upsertWithRetry(ctx, name, batch); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// upsertWithRetry performs an upsert with exponential backoff.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// GetAll scrolls the entire collection and returns every point with its
// payload. A missing collection yields an empty slice.
func (s *QdrantStore) GetAll(ctx context.Context, productID string) ([]Point, error) {
	name := CollectionName(productID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return []Point{}, nil
	}

	var points []Point
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll collection %s: %w", name, err)
		}

		for _, result := range results {
			points = append(points, payloadToPoint(result.Payload))
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	// Scroll order is by point id; sort by chunk id for stable listings.
	sort.Slice(points, func(i, j int) bool { return points[i].ChunkID < points[j].ChunkID })

	if points == nil {
		points = []Point{}
	}
	return points, nil
}

// Query performs cosine similarity search, best-first. A missing collection
// yields an empty result.
func (s *QdrantStore) Query(ctx context.Context, productID string, embedding []float32, k int) ([]ScoredPoint, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if k <= 0 {
		return []ScoredPoint{}, nil
	}

	name := CollectionName(productID)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return []ScoredPoint{}, nil
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", name, err)
	}

	scored := make([]ScoredPoint, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredPoint{
			Point: payloadToPoint(result.Payload),
			Score: float64(result.Score),
		})
	}
	return scored, nil
}

// Delete removes the listed chunk ids. Absent ids and missing collections
// are no-ops.
func (s *QdrantStore) Delete(ctx context.Context, productID string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	name := CollectionName(productID)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}

	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = pointID(id)
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points from %s: %w", name, err)
	}
	return nil
}

// DeleteCollection hard-deletes the product's collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, productID string) error {
	name := CollectionName(productID)
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// ListCollections returns the product ids that currently have a collection.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var products []string
	for _, name := range collections {
		if id, ok := ProductID(name); ok {
			products = append(products, id)
		}
	}
	sort.Strings(products)
	return products, nil
}

// pointID derives the Qdrant point id for a chunk. Qdrant requires UUID or
// integer ids, so the composite chunk id maps to a name-based UUID and the
// composite itself travels in the payload.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

func payloadToPoint(payload map[string]*qdrant.Value) Point {
	uploadedAt, err := time.Parse(time.RFC3339, payload["uploaded_at"].GetStringValue())
	if err != nil {
		uploadedAt = time.Time{} // Use zero time if parse fails
	}

	return Point{
		ChunkID: payload["chunk_id"].GetStringValue(),
		Text:    payload["content"].GetStringValue(),
		Meta: Meta{
			FileName:   payload["file_name"].GetStringValue(),
			FileID:     payload["file_id"].GetStringValue(),
			UploadedAt: uploadedAt,
		},
	}
}
