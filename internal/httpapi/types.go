package httpapi

import (
	"time"

	"github.com/bell/support-rag/internal/analytics"
	"github.com/bell/support-rag/internal/convstore"
	"github.com/bell/support-rag/internal/retrieval"
)

// IngestRequest is the body of POST /api/products/{product}/documents.
type IngestRequest struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// IngestResponse echoes the stored file's metadata.
type IngestResponse struct {
	FileID     string    `json:"file_id"`
	FileName   string    `json:"file_name"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ProductsResponse lists known products with document counts.
type ProductsResponse struct {
	Products []ProductSummary `json:"products"`
}

// ProductSummary is one product row in ProductsResponse.
type ProductSummary struct {
	ProductID string `json:"product_id"`
	Files     int    `json:"files"`
	Chunks    int    `json:"chunks"`
}

// DocumentsResponse lists a product's files.
type DocumentsResponse struct {
	Documents []IngestResponse `json:"documents"`
}

// SearchResult is one scored chunk in a search response.
type SearchResult struct {
	ChunkID  string  `json:"chunk_id"`
	Text     string  `json:"text"`
	FileName string  `json:"file_name"`
	Score    float64 `json:"score"`
}

// SearchResponse is the body of GET /api/products/{product}/search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// AskRequest is the body of POST /api/products/{product}/ask. User and
// SessionID are optional; when both are set the exchange is appended to
// that session.
type AskRequest struct {
	Question  string `json:"question"`
	User      string `json:"user,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse carries the assistant answer and its grounding sources.
type AskResponse struct {
	Answer          string             `json:"answer"`
	Sources         []retrieval.Source `json:"sources"`
	EscalateToHuman bool               `json:"escalate_to_human"`
}

// SuggestionsResponse is the body of GET /api/products/{product}/suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// DeleteFileResponse reports the outcome of a document deletion,
// including whether the owning product was removed by the cascade.
type DeleteFileResponse struct {
	ProductID      string `json:"product_id"`
	ProductDeleted bool   `json:"product_deleted"`
}

// SessionsResponse lists a user's sessions.
type SessionsResponse struct {
	Sessions []convstore.Session `json:"sessions"`
}

// ClearSessionsResponse reports how many sessions were removed.
type ClearSessionsResponse struct {
	Deleted int `json:"deleted"`
}

// AnalyticsResponse is the body of GET /api/analytics.
type AnalyticsResponse struct {
	TotalUsers        int                     `json:"total_users"`
	QueriesPerProduct map[string]int          `json:"queries_per_product"`
	FailedQueries     []analytics.FailedQuery `json:"failed_queries"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
