// Package store holds the authoritative session records behind SessionStore.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"yuzu/interview/internal/types"
)

var (
	// ErrNotFound is returned for missing and expired sessions alike.
	ErrNotFound      = errors.New("session not found")
	ErrSessionExists = errors.New("session already exists")
)

// Mutator edits a private copy of a session. Returning an error aborts the update.
type Mutator func(*types.Session) error

// SessionStore is implemented by the memory, redis and postgres backends.
type SessionStore interface {
	Create(ctx context.Context) (*types.Session, error)
	Get(ctx context.Context, id string) (*types.Session, error)
	// Update applies fn atomically with respect to other updates of the same id.
	Update(ctx context.Context, id string, fn Mutator) (*types.Session, error)
	Cleanup(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// createAttempts bounds id regeneration on a collision.
const createAttempts = 3

// NewSessionID returns 128 bits from crypto/rand, hex encoded.
func NewSessionID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// NewSession builds a session with the default code, language and title.
func NewSession(id string, now time.Time, ttl time.Duration) *types.Session {
	now = now.UTC()
	return &types.Session{
		ID:           id,
		Code:         types.DefaultCode,
		Language:     types.DefaultLanguage,
		Title:        types.DefaultTitle,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		Participants: []string{},
	}
}

// CreateWithRetry calls insert with fresh ids until one does not collide.
func CreateWithRetry(insert func(id string) (*types.Session, error)) (*types.Session, error) {
	var err error
	for iter := 0; iter < createAttempts; iter++ {
		var sess *types.Session
		sess, err = insert(NewSessionID())
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrSessionExists) {
			return nil, err
		}
	}
	return nil, err
}
