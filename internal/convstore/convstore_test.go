package convstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bell/support-rag/internal/kvstore"
	"github.com/bell/support-rag/internal/retrieval"
)

// recorderSpy captures forwarded analytics calls.
type recorderSpy struct {
	products []string
	success  []bool
	queries  []string
	answers  []string
}

func (r *recorderSpy) Record(productID string, success bool, query, answer string) {
	r.products = append(r.products, productID)
	r.success = append(r.success, success)
	r.queries = append(r.queries, query)
	r.answers = append(r.answers, answer)
}

func newTestStore(t *testing.T) (*Store, *recorderSpy) {
	t.Helper()
	kv, err := kvstore.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	spy := &recorderSpy{}
	return NewStore(kv, spy, nil), spy
}

func TestCreateSessionDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, DefaultTitle, session.Title)
	assert.Empty(t, session.Messages)
	assert.Equal(t, session.CreatedAt, session.UpdatedAt)

	got, err := store.GetSession("alice", session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestAppendToMissingSession(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Append("alice", "nope", SenderUser, "hello", "", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFirstUserMessageSetsTitle(t *testing.T) {
	store, _ := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	updated, err := store.Append("alice", session.ID, SenderUser,
		"How do I reset my password please help", "acme", nil)
	require.NoError(t, err)

	assert.Equal(t, "How do I reset my pa...", updated.Title)
	require.Len(t, updated.Messages, 1)
	assert.True(t, updated.UpdatedAt.After(session.UpdatedAt) || updated.UpdatedAt.Equal(session.UpdatedAt))
}

func TestShortFirstMessageKeptWhole(t *testing.T) {
	store, _ := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	updated, err := store.Append("alice", session.ID, SenderUser, "Login help", "acme", nil)
	require.NoError(t, err)
	assert.Equal(t, "Login help", updated.Title)
}

func TestTitleOnlySetOnce(t *testing.T) {
	store, _ := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	_, err = store.Append("alice", session.ID, SenderUser, "First question", "acme", nil)
	require.NoError(t, err)
	updated, err := store.Append("alice", session.ID, SenderUser, "Second question", "acme", nil)
	require.NoError(t, err)

	assert.Equal(t, "First question", updated.Title)
}

func TestAssistantFallbackNormalized(t *testing.T) {
	for _, raw := range []string{
		"I don't have that information",
		"I dont have that information",
	} {
		store, _ := newTestStore(t)
		session, err := store.CreateSession("alice")
		require.NoError(t, err)

		updated, err := store.Append("alice", session.ID, SenderAssistant, raw, "acme", nil)
		require.NoError(t, err)

		require.Len(t, updated.Messages, 1)
		assert.Equal(t, retrieval.CanonicalFallback, updated.Messages[0].Text)
	}
}

func TestAssistantAppendForwardsAnalytics(t *testing.T) {
	store, spy := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	_, err = store.Append("alice", session.ID, SenderUser, "What color is it?", "acme", nil)
	require.NoError(t, err)
	_, err = store.Append("alice", session.ID, SenderAssistant, "I dont have that information", "acme", nil)
	require.NoError(t, err)

	require.Len(t, spy.products, 1)
	assert.Equal(t, "acme", spy.products[0])
	assert.False(t, spy.success[0])
	assert.Equal(t, "What color is it?", spy.queries[0])
	assert.Equal(t, retrieval.CanonicalFallback, spy.answers[0])
}

func TestGroundedAssistantAppendRecordsSuccess(t *testing.T) {
	store, spy := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	sources := []retrieval.Source{{FileName: "guide.md", Snippet: "Hold the button."}}
	updated, err := store.Append("alice", session.ID, SenderAssistant,
		"Hold the reset button for ten seconds.", "acme", sources)
	require.NoError(t, err)

	require.Len(t, spy.success, 1)
	assert.True(t, spy.success[0])
	assert.Equal(t, sources, updated.Messages[0].Sources)
}

// readbackRecorder re-reads the session when Record fires, capturing how
// many messages were persisted at that point.
type readbackRecorder struct {
	t         *testing.T
	store     *Store
	user      string
	sessionID string
	stored    int
}

func (r *readbackRecorder) Record(productID string, success bool, query, answer string) {
	session, err := r.store.GetSession(r.user, r.sessionID)
	require.NoError(r.t, err)
	r.stored = len(session.Messages)
}

func TestAnalyticsForwardedAfterPersist(t *testing.T) {
	kv, err := kvstore.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	spy := &readbackRecorder{t: t}
	store := NewStore(kv, spy, nil)
	spy.store = store

	session, err := store.CreateSession("alice")
	require.NoError(t, err)
	spy.user, spy.sessionID = "alice", session.ID

	_, err = store.Append("alice", session.ID, SenderUser, "What color is it?", "acme", nil)
	require.NoError(t, err)
	_, err = store.Append("alice", session.ID, SenderAssistant, "I dont have that information", "acme", nil)
	require.NoError(t, err)

	// The assistant message must already be stored when analytics sees it.
	assert.Equal(t, 2, spy.stored)
}

func TestUserAppendNotForwarded(t *testing.T) {
	store, spy := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	_, err = store.Append("alice", session.ID, SenderUser, "hello", "acme", nil)
	require.NoError(t, err)
	assert.Empty(t, spy.products)
}

func TestListSessionsNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)

	first, err := store.CreateSession("alice")
	require.NoError(t, err)
	second, err := store.CreateSession("alice")
	require.NoError(t, err)

	// Touch the first session so it becomes the most recently updated.
	_, err = store.Append("alice", first.ID, SenderUser, "bump", "acme", nil)
	require.NoError(t, err)

	sessions, err := store.ListSessions("alice")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestSessionsScopedPerUser(t *testing.T) {
	store, _ := newTestStore(t)

	aliceSession, err := store.CreateSession("alice")
	require.NoError(t, err)
	_, err = store.CreateSession("bob")
	require.NoError(t, err)

	sessions, err := store.ListSessions("alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, aliceSession.ID, sessions[0].ID)

	_, err = store.GetSession("bob", aliceSession.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	store, _ := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession("alice", session.ID))

	_, err = store.GetSession("alice", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, store.DeleteSession("alice", session.ID), ErrSessionNotFound)
}

func TestClearAll(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.CreateSession("alice")
	require.NoError(t, err)
	_, err = store.CreateSession("alice")
	require.NoError(t, err)
	bobSession, err := store.CreateSession("bob")
	require.NoError(t, err)

	n, err := store.ClearAll("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sessions, err := store.ListSessions("alice")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = store.GetSession("bob", bobSession.ID)
	assert.NoError(t, err)
}

func TestMessageOrderPreserved(t *testing.T) {
	store, _ := newTestStore(t)
	session, err := store.CreateSession("alice")
	require.NoError(t, err)

	texts := []string{"one", "two", "three"}
	for _, text := range texts {
		_, err = store.Append("alice", session.ID, SenderUser, text, "acme", nil)
		require.NoError(t, err)
	}

	got, err := store.GetSession("alice", session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	for i, text := range texts {
		assert.Equal(t, text, got.Messages[i].Text)
	}
}
