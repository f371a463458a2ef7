// Package httpapi exposes the support assistant core over a small JSON
// HTTP surface: ingestion, products, search, chat, sessions and
// analytics. The handlers are glue only; all behavior lives in the
// packages they call.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bell/support-rag/internal/analytics"
	"github.com/bell/support-rag/internal/convstore"
	"github.com/bell/support-rag/internal/ingest"
	"github.com/bell/support-rag/internal/llm"
	"github.com/bell/support-rag/internal/retrieval"
	"github.com/bell/support-rag/internal/vectorstore"
)

// Server holds the wired core components behind the HTTP surface.
type Server struct {
	pipeline  *ingest.Pipeline
	engine    *retrieval.Engine
	sessions  *convstore.Store
	analytics *analytics.Service
	fallback  *retrieval.FallbackClassifier
	health    HealthChecker
	logger    *slog.Logger
}

// NewServer creates the HTTP facade. health may be nil when the vector
// backend has no health probe (the in-memory store); /health then only
// reports process liveness.
func NewServer(
	pipeline *ingest.Pipeline,
	engine *retrieval.Engine,
	sessions *convstore.Store,
	analyticsService *analytics.Service,
	health HealthChecker,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline:  pipeline,
		engine:    engine,
		sessions:  sessions,
		analytics: analyticsService,
		fallback:  retrieval.NewFallbackClassifier(),
		health:    health,
		logger:    logger,
	}
}

// Routes returns the HTTP mux with all endpoints registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("POST /api/products/{product}/documents", s.handleIngest)
	mux.HandleFunc("GET /api/products/{product}/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/products/{product}/search", s.handleSearch)
	mux.HandleFunc("POST /api/products/{product}/ask", s.handleAsk)
	mux.HandleFunc("GET /api/products/{product}/suggestions", s.handleSuggestions)
	mux.HandleFunc("DELETE /api/documents/{file}", s.handleDeleteFile)

	mux.HandleFunc("POST /api/users/{user}/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/users/{user}/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/users/{user}/sessions/{session}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/users/{user}/sessions/{session}", s.handleDeleteSession)
	mux.HandleFunc("DELETE /api/users/{user}/sessions", s.handleClearSessions)

	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("DELETE /api/analytics/failed", s.handleClearFailedQueries)

	return mux
}

// writeJSON encodes v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Could not encode response", "error", err)
	}
}

// writeError maps err to an HTTP status and a stable message. Internal
// error text never crosses the boundary verbatim.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, convstore.ErrSessionNotFound):
		status, message = http.StatusNotFound, "session not found"
	case errors.Is(err, ingest.ErrFileNotFound):
		status, message = http.StatusNotFound, "file not found"
	case errors.Is(err, retrieval.ErrEmptyQuestion):
		status, message = http.StatusBadRequest, "question must not be empty"
	case errors.Is(err, ingest.ErrEmptyDocument):
		status, message = http.StatusBadRequest, "document contains no text"
	case errors.Is(err, vectorstore.ErrIngestConflict):
		status, message = http.StatusConflict, "document chunks already exist"
	case errors.Is(err, llm.ErrCompletionUnavailable):
		status, message = http.StatusServiceUnavailable, "assistant is temporarily unavailable"
	case errors.Is(err, vectorstore.ErrUnreachable):
		status, message = http.StatusServiceUnavailable, "document store is unreachable"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
