package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is a process-local session store for tests, demos, and
// single-instance deployments. Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// SetClock replaces time.Now for expiry checks.
func (m *MemoryStore) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Save stores a copy of sess. ttl only has to be positive; expiry is taken
// from sess.ExpiresAt.
func (m *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.SessionID] = sess.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	now := m.now
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if sess.Expired(now().Unix()) {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	return sess.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
