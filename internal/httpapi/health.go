package httpapi

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is the vector backend's health probe. The Qdrant store
// implements it; the in-memory store has no probe and passes nil.
type HealthChecker interface {
	Health(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.health == nil {
		response.Status = "healthy"
		response.Backend = "memory"
		s.writeJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		response.Status = "unhealthy"
		response.Backend = "disconnected"
		s.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "healthy"
	response.Backend = "connected"
	s.writeJSON(w, http.StatusOK, response)
}
