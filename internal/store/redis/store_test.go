package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yuzu/interview/internal/store"
)

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "redis://:%zz@localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing redis url")
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(goredis.Nil), store.ErrNotFound)
	err := translate(errors.New("i/o timeout"))
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "reading session")
}

func TestDecode(t *testing.T) {
	now := time.Now()
	s := New(nil, Config{TTL: time.Hour})
	s.now = func() time.Time { return now }

	sess, err := s.decode([]byte(`{"id":"abc","code":"x","language":"go","participants":null}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.ID)
	assert.NotNil(t, sess.Participants)

	expired := `{"id":"abc","expiresAt":"` + now.Add(-time.Second).UTC().Format(time.RFC3339Nano) + `"}`
	_, err = s.decode([]byte(expired))
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.decode([]byte(`{`))
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	s := New(nil, Config{KeyPrefix: "p:"})
	assert.Equal(t, defaultMaxRetries, s.maxRetries)
	assert.Equal(t, "p:abc", s.key("abc"))
}
