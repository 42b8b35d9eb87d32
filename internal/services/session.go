package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// Turn is a single entry in a session's rolling history
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds one user's conversation state. It is owned exclusively by the
// orchestrator: all mutation happens under the per-user lock taken by
// SessionManager.WithSession.
type Session struct {
	UserID          string                 `json:"user_id"`
	State           string                 `json:"state"`
	Context         map[string]interface{} `json:"context"`
	History         []Turn                 `json:"history"`
	LastInteraction time.Time              `json:"last_interaction"`
}

// AddTurn appends to the bounded history, evicting the oldest turn first
func (s *Session) AddTurn(role, content string, limit int) {
	s.History = append(s.History, Turn{Role: role, Content: content, Timestamp: time.Now()})
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}

// userLock is a per-user mutex with a count of current holders and waiters,
// so the lock entry can be pruned once nobody references it
type userLock struct {
	sync.Mutex
	refs int
}

// SessionManager manages conversation sessions with per-user mutual exclusion
type SessionManager struct {
	store        storage.Store
	sessions     map[string]*Session
	userLocks    map[string]*userLock
	mu           sync.Mutex // guards the two maps above
	sessionTTL   time.Duration
	historyLimit int
	stopSweep    chan struct{}
}

// NewSessionManager creates a new session manager and starts the idle
// eviction sweep
func NewSessionManager(store storage.Store) *SessionManager {
	sm := &SessionManager{
		store:        store,
		sessions:     make(map[string]*Session),
		userLocks:    make(map[string]*userLock),
		sessionTTL:   30 * time.Minute,
		historyLimit: 20,
		stopSweep:    make(chan struct{}),
	}

	go sm.sweepIdleSessions()

	return sm
}

// lockFor returns the mutex serialising all work for one user. Every call
// must be paired with releaseLock.
func (sm *SessionManager) lockFor(userID string) *userLock {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	lock, exists := sm.userLocks[userID]
	if !exists {
		lock = &userLock{}
		sm.userLocks[userID] = lock
	}
	lock.refs++
	return lock
}

// releaseLock unlocks and drops the map entry once the last holder is gone
// and no cached session keeps the user alive
func (sm *SessionManager) releaseLock(userID string, lock *userLock) {
	lock.Unlock()

	sm.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		if _, alive := sm.sessions[userID]; !alive {
			delete(sm.userLocks, userID)
		}
	}
	sm.mu.Unlock()
}

// WithSession runs fn with exclusive ownership of the user's session. The
// session is created lazily on first contact and persisted after fn returns.
// Two in-flight requests for the same user never interleave; distinct users
// run concurrently.
func (sm *SessionManager) WithSession(userID string, fn func(session *Session) error) error {
	lock := sm.lockFor(userID)
	lock.Lock()
	defer sm.releaseLock(userID, lock)

	session := sm.loadSession(userID)
	if err := fn(session); err != nil {
		return err
	}

	session.LastInteraction = time.Now()
	sm.mu.Lock()
	sm.sessions[userID] = session
	sm.mu.Unlock()

	sm.persistSession(session)
	return nil
}

// loadSession returns the cached session, a persisted snapshot, or a fresh
// session, in that order. Callers must hold the user's lock.
func (sm *SessionManager) loadSession(userID string) *Session {
	sm.mu.Lock()
	session, exists := sm.sessions[userID]
	sm.mu.Unlock()

	if exists && time.Since(session.LastInteraction) < sm.sessionTTL {
		return session
	}

	if saved := sm.restoreSession(userID); saved != nil {
		return saved
	}

	return &Session{
		UserID:          userID,
		State:           StateInitial,
		Context:         make(map[string]interface{}),
		LastInteraction: time.Now(),
	}
}

// restoreSession rehydrates a persisted snapshot so another instance (or a
// restart) can resume a recent conversation
func (sm *SessionManager) restoreSession(userID string) *Session {
	if sm.store == nil {
		return nil
	}

	state, err := sm.store.GetConversationState(userID)
	if err != nil {
		return nil
	}
	if time.Since(state.LastInteraction) >= sm.sessionTTL {
		return nil
	}

	session := &Session{
		UserID:          userID,
		State:           state.State,
		Context:         make(map[string]interface{}),
		LastInteraction: state.LastInteraction,
	}
	if err := json.Unmarshal([]byte(state.Context), &session.Context); err != nil {
		session.Context = make(map[string]interface{})
	}
	if state.History != "" {
		_ = json.Unmarshal([]byte(state.History), &session.History)
	}
	return session
}

func (sm *SessionManager) persistSession(session *Session) {
	if sm.store == nil {
		return
	}

	ctxJSON, _ := json.Marshal(session.Context)
	historyJSON, _ := json.Marshal(session.History)

	err := sm.store.SaveConversationState(&models.ConversationState{
		UserID:          session.UserID,
		State:           session.State,
		Context:         string(ctxJSON),
		History:         string(historyJSON),
		LastInteraction: session.LastInteraction,
	})
	if err != nil {
		log.Printf("Failed to persist session for %s: %v", session.UserID, err)
	}
}

// sweepIdleSessions evicts sessions past the idle timeout. An evicted session
// is indistinguishable from a new user on next contact.
func (sm *SessionManager) sweepIdleSessions() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stopSweep:
			return
		case <-ticker.C:
			sm.evictExpired()
		}
	}
}

func (sm *SessionManager) evictExpired() {
	sm.mu.Lock()
	var expired []string
	for userID, session := range sm.sessions {
		if time.Since(session.LastInteraction) >= sm.sessionTTL {
			expired = append(expired, userID)
		}
	}
	sm.mu.Unlock()

	for _, userID := range expired {
		// Take the same per-user lock as WithSession so eviction never
		// races an in-flight turn
		lock := sm.lockFor(userID)
		lock.Lock()

		sm.mu.Lock()
		session, exists := sm.sessions[userID]
		if exists && time.Since(session.LastInteraction) >= sm.sessionTTL {
			delete(sm.sessions, userID)
		} else {
			exists = false
		}
		sm.mu.Unlock()

		if exists && sm.store != nil {
			_ = sm.store.DeleteConversationState(userID)
		}

		sm.releaseLock(userID, lock)

		if exists {
			log.Printf("Evicted idle session for %s", userID)
		}
	}
}

// Stop halts the eviction sweep
func (sm *SessionManager) Stop() {
	close(sm.stopSweep)
}

// ActiveSessionCount returns the number of live sessions (for monitoring)
func (sm *SessionManager) ActiveSessionCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	count := 0
	for _, session := range sm.sessions {
		if time.Since(session.LastInteraction) < sm.sessionTTL {
			count++
		}
	}
	return count
}
