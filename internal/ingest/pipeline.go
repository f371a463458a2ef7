// Package ingest orchestrates document ingestion: extraction, chunking,
// embedding and vector-store writes, plus per-product file bookkeeping.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bell/support-rag/internal/chunker"
	"github.com/bell/support-rag/internal/embedding"
	"github.com/bell/support-rag/internal/extractor"
	"github.com/bell/support-rag/internal/vectorstore"
)

// FileMetadata describes one ingested file, aggregated from its chunks.
type FileMetadata struct {
	FileID     string    `json:"file_id"`
	FileName   string    `json:"file_name"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ProductMetadata lists the files ingested for one product.
type ProductMetadata struct {
	ProductID string         `json:"product_id"`
	Files     []FileMetadata `json:"files"`
}

// Pipeline runs the ingestion write path against a vector store.
type Pipeline struct {
	store     vectorstore.Store
	embedder  embedding.Embedder
	extractor *extractor.Extractor
	chunkOpts chunker.Options
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
// Zero chunk options fall back to the chunker defaults.
func NewPipeline(
	store vectorstore.Store,
	embedder embedding.Embedder,
	ext *extractor.Extractor,
	chunkOpts chunker.Options,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		embedder:  embedder,
		extractor: ext,
		chunkOpts: chunkOpts,
		logger:    logger,
	}
}

// Ingest chunks, embeds and stores rawText as a new file under productID.
//
// The write is all-or-nothing only at the logical level: a vector-store
// failure mid-write surfaces as ErrPartialWrite and chunks already written
// stay behind until the caller removes them with DeleteFile. Re-ingesting
// under an existing file id is not idempotent; delete the old chunks first.
func (p *Pipeline) Ingest(ctx context.Context, productID, fileName, rawText string) (FileMetadata, error) {
	if strings.TrimSpace(rawText) == "" {
		return FileMetadata{}, fmt.Errorf("%w: %s", ErrEmptyDocument, fileName)
	}

	fileID := uuid.New().String()
	uploadedAt := time.Now().UTC()

	resolvedName, err := p.resolveFileName(ctx, productID, fileName)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("resolve file name: %w", err)
	}

	chunks := chunker.Split(rawText, p.chunkOpts)
	p.logger.Debug("Chunked document", "file", resolvedName, "chunks", len(chunks))

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return FileMetadata{}, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	if err := p.store.EnsureCollection(ctx, productID); err != nil {
		return FileMetadata{}, fmt.Errorf("ensure collection: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ChunkID:   ChunkID(productID, fileID, i),
			Text:      chunk,
			Embedding: embeddings[i],
			Meta: vectorstore.Meta{
				FileName:   resolvedName,
				FileID:     fileID,
				UploadedAt: uploadedAt,
			},
		}
	}

	if err := p.store.Add(ctx, productID, points); err != nil {
		if errors.Is(err, vectorstore.ErrIngestConflict) {
			return FileMetadata{}, err
		}
		return FileMetadata{}, fmt.Errorf("%w: %v", ErrPartialWrite, err)
	}

	p.logger.Info("Ingested document",
		"product", productID,
		"file", resolvedName,
		"file_id", fileID,
		"chunks", len(chunks),
	)

	return FileMetadata{
		FileID:     fileID,
		FileName:   resolvedName,
		Chunks:     len(chunks),
		UploadedAt: uploadedAt,
	}, nil
}

// IngestFile extracts text from the file at path and ingests it under
// productID with the file's base name.
func (p *Pipeline) IngestFile(ctx context.Context, productID, path string) (FileMetadata, error) {
	rawText, err := p.extractor.Extract(path)
	if err != nil {
		return FileMetadata{}, err
	}
	return p.Ingest(ctx, productID, filepath.Base(path), rawText)
}

// DeleteFile removes every chunk carrying fileID and returns the owning
// product id. File ids are globally unique, so the scan stops at the first
// product holding matches. Returns ErrFileNotFound when no product does.
func (p *Pipeline) DeleteFile(ctx context.Context, fileID string) (string, error) {
	products, err := p.store.ListCollections(ctx)
	if err != nil {
		return "", fmt.Errorf("list collections: %w", err)
	}

	for _, productID := range products {
		points, err := p.store.GetAll(ctx, productID)
		if err != nil {
			return "", fmt.Errorf("scan product %s: %w", productID, err)
		}

		var chunkIDs []string
		for _, point := range points {
			if point.Meta.FileID == fileID {
				chunkIDs = append(chunkIDs, point.ChunkID)
			}
		}
		if len(chunkIDs) == 0 {
			continue
		}

		if err := p.store.Delete(ctx, productID, chunkIDs); err != nil {
			return "", fmt.Errorf("delete chunks: %w", err)
		}
		p.logger.Info("Deleted file", "product", productID, "file_id", fileID, "chunks", len(chunkIDs))
		return productID, nil
	}

	return "", fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
}

// DeleteProductIfEmpty removes the product's collection iff it exists and
// holds zero chunks. Returns false for collections that never existed.
//
// Combined with DeleteFile this is a two-step, caller-driven cascade, not a
// transaction: two concurrent file deletions in the same product can both
// observe "not empty" and leave the collection behind.
func (p *Pipeline) DeleteProductIfEmpty(ctx context.Context, productID string) (bool, error) {
	products, err := p.store.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	exists := false
	for _, id := range products {
		if id == productID {
			exists = true
			break
		}
	}
	if !exists {
		return false, nil
	}

	points, err := p.store.GetAll(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("scan product %s: %w", productID, err)
	}
	if len(points) > 0 {
		return false, nil
	}

	if err := p.store.DeleteCollection(ctx, productID); err != nil {
		return false, fmt.Errorf("delete collection: %w", err)
	}
	p.logger.Info("Deleted empty product", "product", productID)
	return true, nil
}

// ListProducts returns the product ids that currently hold documents.
func (p *Pipeline) ListProducts(ctx context.Context) ([]string, error) {
	return p.store.ListCollections(ctx)
}

// ListDocuments aggregates the product's chunks into per-file metadata,
// ordered by upload time then file id.
func (p *Pipeline) ListDocuments(ctx context.Context, productID string) ([]FileMetadata, error) {
	points, err := p.store.GetAll(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("scan product %s: %w", productID, err)
	}

	byFile := make(map[string]*FileMetadata)
	for _, point := range points {
		meta, ok := byFile[point.Meta.FileID]
		if !ok {
			byFile[point.Meta.FileID] = &FileMetadata{
				FileID:     point.Meta.FileID,
				FileName:   point.Meta.FileName,
				Chunks:     1,
				UploadedAt: point.Meta.UploadedAt,
			}
			continue
		}
		meta.Chunks++
	}

	files := make([]FileMetadata, 0, len(byFile))
	for _, meta := range byFile {
		files = append(files, *meta)
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].UploadedAt.Before(files[j].UploadedAt)
		}
		return files[i].FileID < files[j].FileID
	})
	return files, nil
}

// ListAllProducts returns per-file metadata for every known product.
func (p *Pipeline) ListAllProducts(ctx context.Context) ([]ProductMetadata, error) {
	products, err := p.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	all := make([]ProductMetadata, 0, len(products))
	for _, productID := range products {
		files, err := p.ListDocuments(ctx, productID)
		if err != nil {
			return nil, err
		}
		all = append(all, ProductMetadata{ProductID: productID, Files: files})
	}
	return all, nil
}

// SearchDocuments embeds the query and returns the product's top-k chunks.
// An empty query searches with a zero vector, which samples stored chunks
// without a similarity preference.
func (p *Pipeline) SearchDocuments(ctx context.Context, productID, query string, k int) ([]vectorstore.ScoredPoint, error) {
	embedding, err := p.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return p.store.Query(ctx, productID, embedding, k)
}

func (p *Pipeline) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return make([]float32, p.embedder.Dimension()), nil
	}
	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vectors[0], nil
}

// resolveFileName returns a display name unique within the product,
// appending " (n)" before the extension on collisions.
func (p *Pipeline) resolveFileName(ctx context.Context, productID, fileName string) (string, error) {
	files, err := p.ListDocuments(ctx, productID)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(files))
	for _, f := range files {
		taken[f.FileName] = struct{}{}
	}

	if _, clash := taken[fileName]; !clash {
		return fileName, nil
	}

	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, clash := taken[candidate]; !clash {
			return candidate, nil
		}
	}
}

// ChunkID builds the deterministic composite chunk id: product id, file id
// and sequence number.
func ChunkID(productID, fileID string, seq int) string {
	return fmt.Sprintf("%s_%s_%d", productID, fileID, seq)
}
