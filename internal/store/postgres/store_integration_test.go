//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"yuzu/interview/internal/store"
	"yuzu/interview/internal/types"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, Migrate(db, slog.Default()))
	// second run is a no-op
	require.NoError(t, Migrate(db, slog.Default()))

	st := New(db, Config{TTL: time.Hour})

	t.Run("create then get", func(t *testing.T) {
		sess, err := st.Create(ctx)
		require.NoError(t, err)
		got, err := st.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, types.DefaultCode, got.Code)
		assert.Empty(t, got.Participants)
	})

	t.Run("concurrent participant appends are not lost", func(t *testing.T) {
		sess, err := st.Create(ctx)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := st.Update(ctx, sess.ID, func(s *types.Session) error {
					s.AddParticipant(fmt.Sprintf("user-%d", i))
					return nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := st.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Len(t, got.Participants, 20)
	})

	t.Run("expired sessions are not found and get cleaned up", func(t *testing.T) {
		short := New(db, Config{TTL: -time.Minute})
		sess, err := short.Create(ctx)
		require.NoError(t, err)

		_, err = st.Get(ctx, sess.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, st.Cleanup(ctx))

		var n int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interview_sessions WHERE id = $1`, sess.ID).Scan(&n))
		assert.Zero(t, n)
	})

	t.Run("down removes the table", func(t *testing.T) {
		require.NoError(t, MigrateDown(db))
		var exists bool
		require.NoError(t, db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = 'interview_sessions'
			)
		`).Scan(&exists))
		assert.False(t, exists)
	})
}
