// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
)

// Config holds all runtime settings for the support assistant core.
type Config struct {
	// Vector store
	VectorBackend string // "qdrant" or "memory"
	QdrantHost    string
	QdrantPort    int

	// Durable key-value storage (sessions, analytics)
	DataDir string

	// Embedding
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBatchSize int

	// Completion
	CompletionModel string

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopK int

	// HTTP surface
	Port string
}

// Load reads configuration from environment variables, applying defaults.
// OPENAI_API_KEY is read directly by the OpenAI client and is not part of
// this struct.
func Load() Config {
	return Config{
		VectorBackend:      getEnv("VECTOR_BACKEND", "qdrant"),
		QdrantHost:         getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:         getEnvInt("QDRANT_PORT", 6334),
		DataDir:            getEnv("DATA_DIR", "data"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 0),
		CompletionModel:    getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 200),
		TopK:               getEnvInt("RETRIEVAL_TOP_K", 4),
		Port:               getEnv("PORT", "8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
