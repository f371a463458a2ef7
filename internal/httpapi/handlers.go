package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bell/support-rag/internal/analytics"
	"github.com/bell/support-rag/internal/convstore"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "file_name is required"})
		return
	}

	meta, err := s.pipeline.Ingest(r.Context(), productID, req.FileName, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, IngestResponse{
		FileID:     meta.FileID,
		FileName:   meta.FileName,
		Chunks:     meta.Chunks,
		UploadedAt: meta.UploadedAt,
	})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.pipeline.ListAllProducts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := ProductsResponse{Products: make([]ProductSummary, 0, len(products))}
	for _, product := range products {
		chunks := 0
		for _, file := range product.Files {
			chunks += file.Chunks
		}
		resp.Products = append(resp.Products, ProductSummary{
			ProductID: product.ProductID,
			Files:     len(product.Files),
			Chunks:    chunks,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.pipeline.ListDocuments(r.Context(), r.PathValue("product"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := DocumentsResponse{Documents: make([]IngestResponse, 0, len(docs))}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, IngestResponse{
			FileID:     doc.FileID,
			FileName:   doc.FileName,
			Chunks:     doc.Chunks,
			UploadedAt: doc.UploadedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")
	query := r.URL.Query().Get("q")
	k := queryInt(r, "k", 5)

	results, err := s.pipeline.SearchDocuments(r.Context(), productID, query, k)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := SearchResponse{Results: make([]SearchResult, 0, len(results))}
	for _, result := range results {
		resp.Results = append(resp.Results, SearchResult{
			ChunkID:  result.ChunkID,
			Text:     result.Text,
			FileName: result.Meta.FileName,
			Score:    result.Score,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAsk answers a question about one product. When the request names
// a user session, the question and the answer are appended to it; the
// session append also feeds analytics. Without a session the outcome is
// recorded directly.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	withSession := req.User != "" && req.SessionID != ""
	if withSession {
		// Record the question first so the session survives even if the
		// answer fails; a failed completion appends no assistant message.
		_, err := s.sessions.Append(req.User, req.SessionID, convstore.SenderUser, req.Question, productID, nil)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	answer, err := s.engine.Answer(r.Context(), productID, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The response body, the stored transcript and the failed-query log
	// must all carry the same canonical fallback wording.
	failed := answer.EscalateToHuman || s.fallback.Failed(answer.Text)
	answer.Text = s.fallback.Normalize(answer.Text)

	if withSession {
		_, err = s.sessions.Append(req.User, req.SessionID, convstore.SenderAssistant, answer.Text, productID, answer.Sources)
		if err != nil {
			s.writeError(w, err)
			return
		}
	} else if s.analytics != nil {
		s.analytics.Record(productID, !failed, req.Question, answer.Text)
	}

	s.writeJSON(w, http.StatusOK, AskResponse{
		Answer:          answer.Text,
		Sources:         answer.Sources,
		EscalateToHuman: answer.EscalateToHuman,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")
	n := queryInt(r, "n", 3)

	suggestions, err := s.engine.GenerateSuggestions(r.Context(), productID, n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

// handleDeleteFile removes a document's chunks and then runs the
// empty-product cascade. The two steps are not atomic; a concurrent
// ingest between them keeps the product alive.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("file")

	productID, err := s.pipeline.DeleteFile(r.Context(), fileID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	deleted, err := s.pipeline.DeleteProductIfEmpty(r.Context(), productID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, DeleteFileResponse{
		ProductID:      productID,
		ProductDeleted: deleted,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.CreateSession(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListSessions(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []convstore.Session{}
	}
	s.writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.GetSession(r.PathValue("user"), r.PathValue("session"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteSession(r.PathValue("user"), r.PathValue("session")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	n, err := s.sessions.ClearAll(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ClearSessionsResponse{Deleted: n})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	state := s.analytics.Snapshot()
	if state.FailedQueries == nil {
		state.FailedQueries = []analytics.FailedQuery{}
	}
	s.writeJSON(w, http.StatusOK, AnalyticsResponse{
		TotalUsers:        state.TotalUsers,
		QueriesPerProduct: state.QueriesPerProduct,
		FailedQueries:     state.FailedQueries,
	})
}

func (s *Server) handleClearFailedQueries(w http.ResponseWriter, r *http.Request) {
	s.analytics.ClearFailedQueries()
	w.WriteHeader(http.StatusNoContent)
}

// queryInt parses an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
