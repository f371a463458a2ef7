// Package main runs the support assistant HTTP server.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bell/support-rag/internal/analytics"
	"github.com/bell/support-rag/internal/chunker"
	"github.com/bell/support-rag/internal/config"
	"github.com/bell/support-rag/internal/convstore"
	"github.com/bell/support-rag/internal/embedding"
	"github.com/bell/support-rag/internal/extractor"
	"github.com/bell/support-rag/internal/httpapi"
	"github.com/bell/support-rag/internal/ingest"
	"github.com/bell/support-rag/internal/kvstore"
	"github.com/bell/support-rag/internal/llm"
	"github.com/bell/support-rag/internal/retrieval"
	"github.com/bell/support-rag/internal/vectorstore"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()
	logger := slog.Default()

	// Vector backend
	var (
		store  vectorstore.Store
		health httpapi.HealthChecker
	)
	switch cfg.VectorBackend {
	case "memory":
		store = vectorstore.NewMemoryStore(cfg.EmbeddingDimension)
	default:
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension)
		if err != nil {
			log.Fatalf("failed to connect to Qdrant: %v", err)
		}
		defer qdrantStore.Close()
		store = qdrantStore
		health = qdrantStore
	}

	// OpenAI client shared by embedding and completion
	client, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDimension, cfg.EmbeddingBatchSize)
	completer := llm.NewOpenAICompleter(client.Client(), cfg.CompletionModel)

	// Durable key-value storage for sessions and analytics
	kv, err := kvstore.Open(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("failed to open key-value store: %v", err)
	}
	defer kv.Close()

	// Core components
	chunkOpts := chunker.Options{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	pipeline := ingest.NewPipeline(store, embedder, extractor.New(), chunkOpts, logger)
	engine := retrieval.NewEngine(store, embedder, completer, cfg.TopK, logger)
	analyticsService := analytics.NewService(kv, logger)
	sessions := convstore.NewStore(kv, analyticsService, logger)

	server := httpapi.NewServer(pipeline, engine, sessions, analyticsService, health, logger)

	addr := "0.0.0.0:" + cfg.Port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Routes(),
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := httpServer.Shutdown(context.Background()); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Starting support server on %s (backend: %s)", addr, cfg.VectorBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("HTTP server error: %v", err)
		os.Exit(1)
	}
}
