// Package convstore owns chat sessions: ordered message lists per user,
// persisted as JSON rows in the key-value store. Assistant messages pass
// through fallback normalization on the way in so the stored transcript
// and the analytics log always agree on "no answer" wording.
package convstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bell/support-rag/internal/analytics"
	"github.com/bell/support-rag/internal/kvstore"
	"github.com/bell/support-rag/internal/retrieval"
)

// ErrSessionNotFound is returned when a session id does not exist for the
// given user.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTitle is the title of a freshly created session, replaced by the
// first user message.
const DefaultTitle = "New Chat"

// titleLimit is the number of leading runes of the first user message kept
// as the session title.
const titleLimit = 20

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry in a session transcript. Sources is set on
// assistant messages that were grounded in retrieved documents.
type Message struct {
	Sender    Sender             `json:"sender"`
	Text      string             `json:"text"`
	Timestamp time.Time          `json:"timestamp"`
	ProductID string             `json:"product_id,omitempty"`
	Sources   []retrieval.Source `json:"sources,omitempty"`
}

// Session is a user's chat session. Mutated only by appending messages.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists sessions and serializes writes per user.
type Store struct {
	kv       *kvstore.Store
	recorder analytics.Recorder
	fallback *retrieval.FallbackClassifier
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a conversation store. recorder may be nil when
// analytics forwarding is not wanted, e.g. in tests.
func NewStore(kv *kvstore.Store, recorder analytics.Recorder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:       kv,
		recorder: recorder,
		fallback: retrieval.NewFallbackClassifier(),
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

func sessionKey(user, sessionID string) string {
	return fmt.Sprintf("session/%s/%s", user, sessionID)
}

func userPrefix(user string) string {
	return fmt.Sprintf("session/%s/", user)
}

// userLock returns the mutex serializing writes for one user, creating it
// on first use.
func (s *Store) userLock(user string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[user]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[user] = lock
	}
	return lock
}

// CreateSession creates an empty session for user with the default title.
func (s *Store) CreateSession(user string) (Session, error) {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	session := Session{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.kv.Put(sessionKey(user, session.ID), session); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.logger.Info("Created session", "user", user, "session", session.ID)
	return session, nil
}

// Append adds a message to the session and returns the updated session.
// Assistant text is rewritten to the canonical fallback sentence when it
// matches any recognized "no answer" phrasing, and the outcome is
// forwarded to analytics with the preceding user message as the query.
// The first user message replaces the default title.
func (s *Store) Append(user, sessionID string, sender Sender, text, productID string, sources []retrieval.Source) (Session, error) {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	var session Session
	if err := s.kv.Get(sessionKey(user, sessionID), &session); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var failed bool
	var query string
	forward := false
	if sender == SenderAssistant {
		failed = s.fallback.Failed(text)
		text = s.fallback.Normalize(text)
		if s.recorder != nil && productID != "" {
			forward = true
			query = lastUserText(session)
		}
	}

	now := time.Now().UTC()
	session.Messages = append(session.Messages, Message{
		Sender:    sender,
		Text:      text,
		Timestamp: now,
		ProductID: productID,
		Sources:   sources,
	})
	session.UpdatedAt = now

	if sender == SenderUser && session.Title == DefaultTitle {
		session.Title = deriveTitle(text)
	}

	if err := s.kv.Put(sessionKey(user, sessionID), session); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	// Analytics count only messages that were actually stored.
	if forward {
		s.recorder.Record(productID, !failed, query, text)
	}
	return session, nil
}

// GetSession returns one session or ErrSessionNotFound.
func (s *Store) GetSession(user, sessionID string) (Session, error) {
	var session Session
	if err := s.kv.Get(sessionKey(user, sessionID), &session); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *Store) ListSessions(user string) ([]Session, error) {
	var sessions []Session
	err := s.kv.List(userPrefix(user), func(key string, value []byte) error {
		var session Session
		if err := json.Unmarshal(value, &session); err != nil {
			s.logger.Warn("Skipping undecodable session", "key", key, "error", err)
			return nil
		}
		sessions = append(sessions, session)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// DeleteSession removes one session. Messages go with it, there is no
// separate message storage.
func (s *Store) DeleteSession(user, sessionID string) error {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.GetSession(user, sessionID); err != nil {
		return err
	}
	return s.kv.Delete(sessionKey(user, sessionID))
}

// ClearAll removes every session belonging to user and reports how many
// were deleted.
func (s *Store) ClearAll(user string) (int, error) {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	n, err := s.kv.DeletePrefix(userPrefix(user))
	if err != nil {
		return 0, fmt.Errorf("clear sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("Cleared sessions", "user", user, "count", n)
	}
	return n, nil
}

// deriveTitle keeps the first titleLimit runes of text, marking
// truncation with an ellipsis.
func deriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "..."
}

// lastUserText returns the text of the most recent user message, the
// query an assistant reply is answering.
func lastUserText(session Session) string {
	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].Sender == SenderUser {
			return session.Messages[i].Text
		}
	}
	return ""
}
