// Package main provides the supportctl CLI for managing the support
// assistant's document index and inspecting its state.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bell/support-rag/internal/analytics"
	"github.com/bell/support-rag/internal/chunker"
	"github.com/bell/support-rag/internal/config"
	"github.com/bell/support-rag/internal/embedding"
	"github.com/bell/support-rag/internal/extractor"
	"github.com/bell/support-rag/internal/ingest"
	"github.com/bell/support-rag/internal/kvstore"
	"github.com/bell/support-rag/internal/llm"
	"github.com/bell/support-rag/internal/retrieval"
	"github.com/bell/support-rag/internal/vectorstore"
)

var rootCmd = &cobra.Command{
	Use:   "supportctl",
	Short: "Support assistant administration tool",
	Long: `CLI for managing the support assistant's per-product document index.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings and completion (required)
  DATA_DIR       Key-value storage directory (default: data)`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <product> <file>...",
	Short: "Ingest document files into a product's index",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runIngest,
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List all products with ingested documents",
	RunE:  runProducts,
}

var documentsCmd = &cobra.Command{
	Use:   "documents <product>",
	Short: "List a product's documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocuments,
}

var searchCmd = &cobra.Command{
	Use:   "search <product> <query>",
	Short: "Search a product's document chunks",
	Args:  cobra.ExactArgs(2),
	RunE:  runSearch,
}

var deleteFileCmd = &cobra.Command{
	Use:   "delete-file <file-id>",
	Short: "Delete a document's chunks, removing the product if it becomes empty",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteFile,
}

var askCmd = &cobra.Command{
	Use:   "ask <product> <question>",
	Short: "Ask a question against a product's documents",
	Args:  cobra.ExactArgs(2),
	RunE:  runAsk,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <product>",
	Short: "Generate suggested questions for a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print usage counters and the failed-query log",
	RunE:  runAnalytics,
}

var clearFailedCmd = &cobra.Command{
	Use:   "clear-failed",
	Short: "Empty the failed-query log, keeping counters",
	RunE:  runClearFailed,
}

var searchK int
var suggestN int

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", 5, "number of chunks to return")
	suggestCmd.Flags().IntVar(&suggestN, "n", 3, "number of suggestions")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(deleteFileCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(clearFailedCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newPipeline wires the vector store, embedder and extractor from the
// environment configuration.
func newPipeline() (*ingest.Pipeline, *vectorstore.QdrantStore, error) {
	cfg := config.Load()

	store, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to Qdrant: %w", err)
	}

	client, err := embedding.NewClient()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	embedder := embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDimension, cfg.EmbeddingBatchSize)

	chunkOpts := chunker.Options{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	pipeline := ingest.NewPipeline(store, embedder, extractor.New(), chunkOpts, slog.Default())
	return pipeline, store, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	productID := args[0]
	paths := args[1:]

	pipeline, store, err := newPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	for _, path := range paths {
		meta, err := pipeline.IngestFile(ctx, productID, path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		fmt.Printf("Ingested %s: %d chunks (file id %s)\n", meta.FileName, meta.Chunks, meta.FileID)
	}
	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runProducts(cmd *cobra.Command, args []string) error {
	pipeline, store, err := newPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	products, err := pipeline.ListAllProducts(context.Background())
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Println("No products indexed.")
		return nil
	}
	for _, product := range products {
		chunks := 0
		for _, file := range product.Files {
			chunks += file.Chunks
		}
		fmt.Printf("%s: %d files, %d chunks\n", product.ProductID, len(product.Files), chunks)
	}
	return nil
}

func runDocuments(cmd *cobra.Command, args []string) error {
	pipeline, store, err := newPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := pipeline.ListDocuments(context.Background(), args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents.")
		return nil
	}
	for _, doc := range docs {
		fmt.Printf("%s  %s  %d chunks  %s\n",
			doc.FileID, doc.FileName, doc.Chunks, doc.UploadedAt.Format(time.RFC3339))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	pipeline, store, err := newPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := pipeline.SearchDocuments(context.Background(), args[0], args[1], searchK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, result := range results {
		fmt.Printf("[%.3f] %s (%s)\n  %s\n", result.Score, result.ChunkID, result.Meta.FileName, result.Text)
	}
	return nil
}

func runDeleteFile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pipeline, store, err := newPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	productID, err := pipeline.DeleteFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted file %s from product %s\n", args[0], productID)

	deleted, err := pipeline.DeleteProductIfEmpty(ctx, productID)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Printf("Product %s had no documents left and was removed\n", productID)
	}
	return nil
}

// newEngine wires the retrieval engine from the environment
// configuration.
func newEngine() (*retrieval.Engine, *vectorstore.QdrantStore, error) {
	cfg := config.Load()

	store, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to Qdrant: %w", err)
	}

	client, err := embedding.NewClient()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	embedder := embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDimension, cfg.EmbeddingBatchSize)
	completer := llm.NewOpenAICompleter(client.Client(), cfg.CompletionModel)
	return retrieval.NewEngine(store, embedder, completer, cfg.TopK, slog.Default()), store, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	engine, store, err := newEngine()
	if err != nil {
		return err
	}
	defer store.Close()

	answer, err := engine.Answer(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if answer.EscalateToHuman {
		fmt.Println("(escalate to human)")
	}
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, source := range answer.Sources {
			fmt.Printf("  - %s: %s\n", source.FileName, source.Snippet)
		}
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	engine, store, err := newEngine()
	if err != nil {
		return err
	}
	defer store.Close()

	suggestions, err := engine.GenerateSuggestions(context.Background(), args[0], suggestN)
	if err != nil {
		return err
	}
	for _, suggestion := range suggestions {
		fmt.Printf("- %s\n", suggestion)
	}
	return nil
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	kv, err := kvstore.Open(cfg.DataDir, slog.Default())
	if err != nil {
		return err
	}
	defer kv.Close()

	state := analytics.NewService(kv, slog.Default()).Snapshot()

	fmt.Printf("Total users: %d\n", state.TotalUsers)
	fmt.Println("Queries per product:")
	if len(state.QueriesPerProduct) == 0 {
		fmt.Println("  (none)")
	}
	for product, count := range state.QueriesPerProduct {
		fmt.Printf("  %s: %d\n", product, count)
	}
	fmt.Printf("Failed queries: %d\n", len(state.FailedQueries))
	for _, failed := range state.FailedQueries {
		fmt.Printf("  [%s] %s: %q\n",
			failed.Timestamp.Format(time.RFC3339), failed.ProductID, failed.Query)
	}
	return nil
}

func runClearFailed(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	kv, err := kvstore.Open(cfg.DataDir, slog.Default())
	if err != nil {
		return err
	}
	defer kv.Close()

	analytics.NewService(kv, slog.Default()).ClearFailedQueries()
	fmt.Println("Failed-query log cleared.")
	return nil
}
