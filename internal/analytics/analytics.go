// Package analytics keeps process-wide usage counters: per-product query
// volume, a log of queries the assistant could not answer, and the number
// of registered users. State lives as a single JSON row in the key-value
// store and every mutation writes through immediately.
package analytics

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bell/support-rag/internal/kvstore"
	"github.com/bell/support-rag/internal/retrieval"
)

const stateKey = "analytics/state"

// FailedQuery is one question the assistant could not answer from the
// product's documents.
type FailedQuery struct {
	ProductID string    `json:"product_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the durable analytics aggregate.
type State struct {
	TotalUsers        int            `json:"total_users"`
	QueriesPerProduct map[string]int `json:"queries_per_product"`
	FailedQueries     []FailedQuery  `json:"failed_queries"`
}

// Recorder is the write side of analytics, implemented by *Service. The
// conversation store depends on this instead of the concrete type.
type Recorder interface {
	Record(productID string, success bool, query, answer string)
}

// Service tracks and persists analytics state. All mutations hold a global
// mutex: the aggregate is one logical row, so per-key locking buys nothing.
type Service struct {
	mu     sync.Mutex
	state  State
	store  *kvstore.Store
	logger *slog.Logger
}

var _ Recorder = (*Service)(nil)

// NewService loads persisted state from the store, starting from a zeroed
// aggregate when none exists or the stored row cannot be decoded.
func NewService(store *kvstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	var state State
	if err := store.Get(stateKey, &state); err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			logger.Warn("Could not load analytics state, starting fresh", "error", err)
		}
		state = State{}
	}
	if state.QueriesPerProduct == nil {
		state.QueriesPerProduct = make(map[string]int)
	}

	return &Service{
		state:  state,
		store:  store,
		logger: logger,
	}
}

// Record tallies one query against productID. Failed queries (success
// false) are also appended to the failed-query log with the answer text
// the caller stored, which for fallback answers is already the canonical
// sentence.
func (s *Service) Record(productID string, success bool, query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.QueriesPerProduct[productID]++
	if !success {
		s.state.FailedQueries = append(s.state.FailedQueries, FailedQuery{
			ProductID: productID,
			Query:     query,
			Answer:    retrieval.CanonicalFallback,
			Timestamp: time.Now().UTC(),
		})
	}
	s.persist()
}

// RecordUser increments the registered-user counter.
func (s *Service) RecordUser() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TotalUsers++
	s.persist()
}

// SetTotalUsers overwrites the registered-user counter, used when the
// caller owns the authoritative user list.
func (s *Service) SetTotalUsers(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TotalUsers = n
	s.persist()
}

// ClearFailedQueries empties the failed-query log. Counters are untouched.
func (s *Service) ClearFailedQueries() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.FailedQueries = nil
	s.persist()
}

// Snapshot returns a copy of the current state safe for the caller to
// read without holding the service's lock.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := State{
		TotalUsers:        s.state.TotalUsers,
		QueriesPerProduct: make(map[string]int, len(s.state.QueriesPerProduct)),
		FailedQueries:     make([]FailedQuery, len(s.state.FailedQueries)),
	}
	for k, v := range s.state.QueriesPerProduct {
		snapshot.QueriesPerProduct[k] = v
	}
	copy(snapshot.FailedQueries, s.state.FailedQueries)
	return snapshot
}

// persist writes through to the store. Callers hold s.mu.
func (s *Service) persist() {
	if err := s.store.Put(stateKey, s.state); err != nil {
		s.logger.Error("Could not persist analytics state", "error", err)
	}
}
