package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embmock "github.com/bell/support-rag/internal/embedding/mock"
	"github.com/bell/support-rag/internal/llm"
	llmmock "github.com/bell/support-rag/internal/llm/mock"
	"github.com/bell/support-rag/internal/vectorstore"
)

func newTestEngine(t *testing.T, completer llm.Completer) (*Engine, *vectorstore.MemoryStore, *embmock.Embedder) {
	t.Helper()
	embedder := embmock.NewEmbedder(0)
	store := vectorstore.NewMemoryStore(embedder.Dimension())
	engine := NewEngine(store, embedder, completer, 0, slog.Default())
	return engine, store, embedder
}

func seedChunks(t *testing.T, store *vectorstore.MemoryStore, embedder *embmock.Embedder, productID string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	embeddings, err := embedder.Embed(ctx, texts)
	require.NoError(t, err)

	points := make([]vectorstore.Point, len(texts))
	for i, text := range texts {
		points[i] = vectorstore.Point{
			ChunkID:   productID + "_seed_" + strings.Repeat("x", i+1),
			Text:      text,
			Embedding: embeddings[i],
			Meta: vectorstore.Meta{
				FileName:   "seed.txt",
				FileID:     "seed",
				UploadedAt: time.Now().UTC(),
			},
		}
	}
	require.NoError(t, store.Add(ctx, productID, points))
}

func TestAnswer_EmptyQuestionRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t, &llmmock.Completer{})

	_, err := engine.Answer(context.Background(), "acme", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswer_NoDocumentsEscalates(t *testing.T) {
	completer := &llmmock.Completer{Response: "should never be called"}
	engine, _, _ := newTestEngine(t, completer)

	answer, err := engine.Answer(context.Background(), "empty-product", "How do I log in?")
	require.NoError(t, err)

	assert.Equal(t, NoDocumentsAnswer, answer.Text)
	assert.True(t, answer.EscalateToHuman)
	assert.Empty(t, answer.Sources)
	assert.Empty(t, completer.UserPrompts, "completer must not be called without context")
}

func TestAnswer_GroundedWithSources(t *testing.T) {
	completer := &llmmock.Completer{Response: "Hold the reset button for ten seconds."}
	engine, store, embedder := newTestEngine(t, completer)

	seedChunks(t, store, embedder, "acme",
		"To reset the device hold the reset button for ten seconds.",
		"The warranty covers two years of manufacturing defects.",
	)

	answer, err := engine.Answer(context.Background(), "acme", "How do I reset the device?")
	require.NoError(t, err)

	assert.Equal(t, "Hold the reset button for ten seconds.", answer.Text)
	assert.False(t, answer.EscalateToHuman)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, answer.Sources[0].Text, "reset button",
		"best-matching chunk should be the first source")
	assert.LessOrEqual(t, len(answer.Sources[0].Snippet), SnippetLen)

	require.Len(t, completer.UserPrompts, 1)
	prompt := completer.UserPrompts[0]
	assert.Contains(t, prompt, "ONLY using the provided context")
	assert.Contains(t, prompt, "I don't have that information")
	assert.Contains(t, prompt, "Source 1")
	assert.Contains(t, prompt, "How do I reset the device?")
}

func TestAnswer_CompletionFailureSurfaces(t *testing.T) {
	completer := &llmmock.Completer{Err: llm.ErrCompletionUnavailable}
	engine, store, embedder := newTestEngine(t, completer)
	seedChunks(t, store, embedder, "acme", "Some context chunk.")

	_, err := engine.Answer(context.Background(), "acme", "A question?")
	assert.ErrorIs(t, err, llm.ErrCompletionUnavailable)
}

func TestAnswer_CancelledContextReturnsError(t *testing.T) {
	completer := &llmmock.Completer{Response: "never delivered"}
	engine, store, embedder := newTestEngine(t, completer)
	seedChunks(t, store, embedder, "acme", "Some context chunk.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Answer(ctx, "acme", "A question?")
	assert.Error(t, err, "cancelled completion must not produce an answer to persist")
}

func TestRetrieve_EmptyQuerySamples(t *testing.T) {
	engine, store, embedder := newTestEngine(t, &llmmock.Completer{})
	seedChunks(t, store, embedder, "acme", "alpha content", "beta content", "gamma content")

	results, err := engine.Retrieve(context.Background(), "acme", "", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2, "empty query still samples stored chunks")
	assert.Equal(t, 1, embedder.Calls, "empty query must not call the embedder")
}

func TestGenerateSuggestions_ParsesCompleterOutput(t *testing.T) {
	completer := &llmmock.Completer{Response: "1. How do I install it?\n2. What does the warranty cover?\n3. How do I contact support?"}
	engine, store, embedder := newTestEngine(t, completer)
	seedChunks(t, store, embedder, "acme", "Install guide chunk.", "Warranty chunk.")

	got, err := engine.GenerateSuggestions(context.Background(), "acme", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"How do I install it?",
		"What does the warranty cover?",
		"How do I contact support?",
	}, got)
}

func TestGenerateSuggestions_NoDocumentsUsesDefaults(t *testing.T) {
	completer := &llmmock.Completer{Response: "unused"}
	engine, _, _ := newTestEngine(t, completer)

	got, err := engine.GenerateSuggestions(context.Background(), "empty", 3)
	require.NoError(t, err)
	assert.Equal(t, DefaultSuggestions(3), got)
	assert.Empty(t, completer.UserPrompts)
}

func TestGenerateSuggestions_CompleterFailureUsesDefaults(t *testing.T) {
	completer := &llmmock.Completer{Err: llm.ErrCompletionUnavailable}
	engine, store, embedder := newTestEngine(t, completer)
	seedChunks(t, store, embedder, "acme", "Some chunk.")

	got, err := engine.GenerateSuggestions(context.Background(), "acme", 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultSuggestions(2), got)
}
