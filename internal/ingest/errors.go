package ingest

import "errors"

var (
	// ErrEmptyDocument indicates the extracted text was blank.
	ErrEmptyDocument = errors.New("no extractable text in document")

	// ErrPartialWrite indicates the vector store write failed after
	// ingestion started. Chunks written before the failure may remain;
	// the caller decides whether to retry or clean up via DeleteFile.
	ErrPartialWrite = errors.New("partial failure writing chunks")

	// ErrFileNotFound indicates no product collection holds chunks for
	// the given file id.
	ErrFileNotFound = errors.New("file not found")
)
