package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yuzu/interview/internal/types"
)

const testTTL = 24 * time.Hour

func TestNewSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for iter := 0; iter < 1000; iter++ {
		id := NewSessionID()
		require.Len(t, id, 32)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCreateAndGet(t *testing.T) {
	st := NewMemoryStore(testTTL)
	ctx := context.Background()

	sess, err := st.Create(ctx)
	require.NoError(t, err)

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCode, got.Code)
	assert.Equal(t, types.DefaultLanguage, got.Language)
	assert.Equal(t, types.DefaultTitle, got.Title)
	assert.Empty(t, got.Participants)
	assert.NotNil(t, got.Participants)
	assert.Equal(t, got.CreatedAt.Add(testTTL), got.ExpiresAt)
}

func TestGetUnknown(t *testing.T) {
	st := NewMemoryStore(testTTL)
	_, err := st.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredSessionIsNotFound(t *testing.T) {
	now := time.Now()
	st := NewMemoryStore(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()
	sess, err := st.Create(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = st.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Update(ctx, sess.ID, func(*types.Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, st.Len())
	require.NoError(t, st.Cleanup(ctx))
	assert.Equal(t, 0, st.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	st := NewMemoryStore(testTTL)
	ctx := context.Background()
	sess, err := st.Create(ctx)
	require.NoError(t, err)

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	got.Code = "mutated"
	got.Participants = append(got.Participants, "Mallory")

	again, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCode, again.Code)
	assert.Empty(t, again.Participants)
}

func TestUpdateKeepsIdentity(t *testing.T) {
	st := NewMemoryStore(testTTL)
	ctx := context.Background()
	sess, err := st.Create(ctx)
	require.NoError(t, err)

	got, err := st.Update(ctx, sess.ID, func(s *types.Session) error {
		s.ID = "other"
		s.Code = "x=1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "x=1", got.Code)
}

func TestUpdateAbortsOnMutatorError(t *testing.T) {
	st := NewMemoryStore(testTTL)
	ctx := context.Background()
	sess, err := st.Create(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = st.Update(ctx, sess.ID, func(s *types.Session) error {
		s.Code = "half-written"
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCode, got.Code)
}

func TestConcurrentParticipantAppends(t *testing.T) {
	st := NewMemoryStore(testTTL)
	ctx := context.Background()
	sess, err := st.Create(ctx)
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", i%25)
			_, err := st.Update(ctx, sess.ID, func(s *types.Session) error {
				s.AddParticipant(name)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 25)
}

func TestCreateWithRetry(t *testing.T) {
	calls := 0
	sess, err := CreateWithRetry(func(id string) (*types.Session, error) {
		calls++
		if calls < 2 {
			return nil, ErrSessionExists
		}
		return &types.Session{ID: id}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, sess.ID, 32)

	calls = 0
	_, err = CreateWithRetry(func(string) (*types.Session, error) {
		calls++
		return nil, ErrSessionExists
	})
	assert.ErrorIs(t, err, ErrSessionExists)
	assert.Equal(t, createAttempts, calls)
}
