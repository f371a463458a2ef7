// Package retrieval answers product questions by grounding an external
// completion model in chunks retrieved from the vector store.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bell/support-rag/internal/embedding"
	"github.com/bell/support-rag/internal/llm"
	"github.com/bell/support-rag/internal/vectorstore"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	// maxExcerptLen caps how much of a chunk goes into the prompt.
	maxExcerptLen = 1500

	// SnippetLen is the display length of source excerpts.
	SnippetLen = 200

	// NoDocumentsAnswer is returned when the product has no chunks at all.
	NoDocumentsAnswer = "No documents found for this product."

	systemPrompt = "You are a helpful, concise customer support assistant."

	// suggestionSampleK is how many chunks feed suggestion generation.
	suggestionSampleK = 6
)

// ErrEmptyQuestion indicates a blank question; a 400-equivalent for callers.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Source is one excerpt the answer was grounded on. Text carries the full
// chunk; Snippet is truncated for display.
type Source struct {
	Text     string `json:"text"`
	Snippet  string `json:"snippet"`
	FileName string `json:"file_name"`
}

// Answer is the outcome of one grounded question.
type Answer struct {
	Text            string   `json:"answer"`
	Sources         []Source `json:"sources"`
	EscalateToHuman bool     `json:"escalate_to_human"`
}

// Engine retrieves product context and produces grounded answers.
type Engine struct {
	store     vectorstore.Store
	embedder  embedding.Embedder
	completer llm.Completer
	topK      int
	logger    *slog.Logger
}

// NewEngine creates a retrieval engine. topK <= 0 uses DefaultTopK.
func NewEngine(
	store vectorstore.Store,
	embedder embedding.Embedder,
	completer llm.Completer,
	topK int,
	logger *slog.Logger,
) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		embedder:  embedder,
		completer: completer,
		topK:      topK,
		logger:    logger,
	}
}

// Retrieve embeds the query and returns the product's k nearest chunks.
// An empty query retrieves with a zero vector: no similarity preference,
// used to sample representative chunks for suggestion generation.
func (e *Engine) Retrieve(ctx context.Context, productID, query string, k int) ([]vectorstore.ScoredPoint, error) {
	var queryEmbedding []float32
	if strings.TrimSpace(query) == "" {
		queryEmbedding = make([]float32, e.embedder.Dimension())
	} else {
		vectors, err := e.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		queryEmbedding = vectors[0]
	}

	return e.store.Query(ctx, productID, queryEmbedding, k)
}

// Answer retrieves top-k context for the question and asks the completion
// collaborator for a grounded answer. Products without documents get a
// fixed answer with EscalateToHuman set. Completion failures propagate so
// the caller never persists a partial assistant message.
func (e *Engine) Answer(ctx context.Context, productID, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}

	chunks, err := e.Retrieve(ctx, productID, question, e.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}

	if len(chunks) == 0 {
		e.logger.Info("No context for question", "product", productID)
		return Answer{
			Text:            NoDocumentsAnswer,
			Sources:         []Source{},
			EscalateToHuman: true,
		}, nil
	}

	prompt := buildPrompt(question, chunks)
	text, err := e.completer.Complete(ctx, systemPrompt, prompt, 0, 300)
	if err != nil {
		return Answer{}, err
	}

	sources := make([]Source, len(chunks))
	for i, chunk := range chunks {
		sources[i] = Source{
			Text:     chunk.Text,
			Snippet:  truncate(chunk.Text, SnippetLen),
			FileName: chunk.Meta.FileName,
		}
	}

	return Answer{
		Text:            strings.TrimSpace(text),
		Sources:         sources,
		EscalateToHuman: false,
	}, nil
}

// GenerateSuggestions proposes up to n short user questions for a product,
// derived from a representative sample of its chunks. Products without
// documents and completion failures fall back to generic defaults rather
// than erroring; suggestions are decorative.
func (e *Engine) GenerateSuggestions(ctx context.Context, productID string, n int) ([]string, error) {
	if n <= 0 {
		n = 3
	}

	chunks, err := e.Retrieve(ctx, productID, "overview", suggestionSampleK)
	if err != nil {
		return nil, fmt.Errorf("sample chunks: %w", err)
	}
	if len(chunks) == 0 {
		return DefaultSuggestions(n), nil
	}

	var content strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(truncate(chunk.Text, 1200))
	}

	prompt := fmt.Sprintf(
		"You are given documentation excerpts for a product. Produce %d short, "+
			"user-friendly suggested queries that a user might ask the support bot. "+
			"Keep each suggestion concise (a short question), and only output the "+
			"suggestions as a bullet list or numbered lines with no additional "+
			"commentary.\n\nContext excerpts:\n%s\n\nOutput %d questions:",
		n, content.String(), n,
	)

	text, err := e.completer.Complete(ctx, "You are a helpful assistant that writes example user queries.", prompt, 0.2, 200)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("Suggestion completion failed, using defaults", "product", productID, "error", err)
		return DefaultSuggestions(n), nil
	}

	return ParseSuggestions(text, n), nil
}

// buildPrompt assembles the grounding prompt: numbered source excerpts plus
// a strict context-only instruction naming the fallback sentence.
func buildPrompt(question string, chunks []vectorstore.ScoredPoint) string {
	var context strings.Builder
	for i, chunk := range chunks {
		excerpt := strings.TrimSpace(chunk.Text)
		if len(excerpt) > maxExcerptLen {
			excerpt = truncate(excerpt, maxExcerptLen) + " ... [truncated]"
		}
		fmt.Fprintf(&context, "Source %d (doc_%d):\n%s\n\n", i+1, i+1, excerpt)
	}

	return fmt.Sprintf(
		"Answer the question ONLY using the provided context.\n"+
			"If the answer is not present, say: \"I don't have that information.\".\n\n"+
			"Context:\n%s\n"+
			"Question: %s\nAnswer:",
		strings.TrimSpace(context.String()), question,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
