package store

import (
	"context"
	"sync"
	"time"

	"yuzu/interview/internal/types"
)

// MemoryStore implements SessionStore using an in-memory map with TTL-based expiration.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*types.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests to drive expiry.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Create(_ context.Context) (*types.Session, error) {
	return CreateWithRetry(func(id string) (*types.Session, error) {
		sess := NewSession(id, s.now(), s.ttl)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.sessions[id]; ok {
			return nil, ErrSessionExists
		}
		s.sessions[id] = sess
		return sess.Clone(), nil
	})
}

// Get returns a copy of the session. Expired entries read as ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn Mutator) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[id]
	if !ok || cur.Expired(s.now()) {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	// identity and lifetime are not editable
	next.ID, next.CreatedAt, next.ExpiresAt = cur.ID, cur.CreatedAt, cur.ExpiresAt
	s.sessions[id] = next
	return next.Clone(), nil
}

// Cleanup removes expired sessions.
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Len counts stored entries, expired ones included until Cleanup runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Verify interface compliance.
var _ SessionStore = (*MemoryStore)(nil)
