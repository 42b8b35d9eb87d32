package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	sm := NewSessionManager(storage.NewMemoryStore())
	defer sm.Stop()

	require.NoError(t, sm.WithSession("+237670000001", func(s *Session) error {
		s.Context["query"] = "phones"
		return nil
	}))

	require.NoError(t, sm.WithSession("+237670000002", func(s *Session) error {
		assert.NotContains(t, s.Context, "query")
		s.Context["query"] = "laptops"
		return nil
	}))

	require.NoError(t, sm.WithSession("+237670000001", func(s *Session) error {
		assert.Equal(t, "phones", s.Context["query"])
		return nil
	}))
}

func TestWithSessionSerializesSameUser(t *testing.T) {
	sm := NewSessionManager(storage.NewMemoryStore())
	defer sm.Stop()

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sm.WithSession("+237670000001", func(s *Session) error {
				n, _ := s.Context["count"].(int)
				s.Context["count"] = n + 1
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, sm.WithSession("+237670000001", func(s *Session) error {
		assert.Equal(t, turns, s.Context["count"])
		return nil
	}))
}

func TestSessionPersistsAcrossManagers(t *testing.T) {
	store := storage.NewMemoryStore()

	sm1 := NewSessionManager(store)
	require.NoError(t, sm1.WithSession("+237670000001", func(s *Session) error {
		s.State = StateSearching
		s.Context["query"] = "TVs"
		s.AddTurn("user", "TVs in Douala", 20)
		return nil
	}))
	sm1.Stop()

	// A new manager (fresh cache) restores from the store
	sm2 := NewSessionManager(store)
	defer sm2.Stop()
	require.NoError(t, sm2.WithSession("+237670000001", func(s *Session) error {
		assert.Equal(t, StateSearching, s.State)
		assert.Equal(t, "TVs", s.Context["query"])
		require.Len(t, s.History, 1)
		assert.Equal(t, "TVs in Douala", s.History[0].Content)
		return nil
	}))
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	store := storage.NewMemoryStore()
	sm := NewSessionManager(store)
	defer sm.Stop()
	sm.sessionTTL = 10 * time.Millisecond

	require.NoError(t, sm.WithSession("+237670000001", func(s *Session) error {
		s.Context["query"] = "TVs"
		return nil
	}))
	assert.Equal(t, 1, sm.ActiveSessionCount())

	time.Sleep(20 * time.Millisecond)
	sm.evictExpired()

	assert.Equal(t, 0, sm.ActiveSessionCount())
	_, err := store.GetConversationState("+237670000001")
	assert.Error(t, err)
}

func TestEvictionPrunesUserLocks(t *testing.T) {
	store := storage.NewMemoryStore()
	sm := NewSessionManager(store)
	defer sm.Stop()
	sm.sessionTTL = 10 * time.Millisecond

	for i := 0; i < 5; i++ {
		user := fmt.Sprintf("+23767000000%d", i)
		require.NoError(t, sm.WithSession(user, func(s *Session) error { return nil }))
	}
	sm.mu.Lock()
	assert.Len(t, sm.userLocks, 5)
	sm.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	sm.evictExpired()

	// An evicted user leaves no session and no lock behind
	sm.mu.Lock()
	assert.Empty(t, sm.userLocks)
	assert.Empty(t, sm.sessions)
	sm.mu.Unlock()

	// The user is indistinguishable from a new one afterwards
	require.NoError(t, sm.WithSession("+237670000000", func(s *Session) error {
		assert.Equal(t, StateInitial, s.State)
		return nil
	}))
}

func TestAddTurnBoundsHistory(t *testing.T) {
	s := &Session{}
	for i := 0; i < 30; i++ {
		s.AddTurn("user", fmt.Sprintf("message %d", i), 20)
	}

	assert.Len(t, s.History, 20)
	assert.Equal(t, "message 10", s.History[0].Content)
	assert.Equal(t, "message 29", s.History[19].Content)
}
