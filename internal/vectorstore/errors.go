package vectorstore

import "errors"

var (
	// ErrUnreachable indicates the vector store backend cannot be reached.
	ErrUnreachable = errors.New("vector store unreachable")

	// ErrIngestConflict indicates a chunk id already exists in the target
	// collection. Re-ingesting a file requires deleting its chunks first.
	ErrIngestConflict = errors.New("chunk id already exists in collection")

	// ErrDimensionMismatch indicates an embedding whose length does not
	// match the store's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLengthMismatch indicates Add was called with points missing ids,
	// texts or embeddings.
	ErrLengthMismatch = errors.New("point fields have mismatched lengths")
)
