// Package postgres provides PostgreSQL storage for interview sessions.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"yuzu/interview/internal/store"
	"yuzu/interview/internal/types"
)

const table = "interview_sessions"

// uniqueViolation is the SQLSTATE for a duplicate primary key.
const uniqueViolation = "23505"

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// sessionColumns lists columns returned by session SELECT queries.
var sessionColumns = []string{
	"id", "code", "language", "title", "participants", "created_at", "expires_at",
}

// Store implements store.SessionStore using PostgreSQL.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Config configures the PostgreSQL session store.
type Config struct {
	TTL time.Duration
}

// New creates a new PostgreSQL session store. The caller owns db.
func New(db *sql.DB, cfg Config) *Store {
	return &Store{db: db, ttl: cfg.TTL, now: time.Now}
}

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func (s *Store) Create(ctx context.Context) (*types.Session, error) {
	return store.CreateWithRetry(func(id string) (*types.Session, error) {
		sess := store.NewSession(id, s.now(), s.ttl)
		participants, err := json.Marshal(sess.Participants)
		if err != nil {
			return nil, fmt.Errorf("marshaling participants: %w", err)
		}
		query, args, err := psq.Insert(table).
			Columns(sessionColumns...).
			Values(sess.ID, sess.Code, sess.Language, sess.Title, participants, sess.CreatedAt, sess.ExpiresAt).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("building insert: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
				return nil, store.ErrSessionExists
			}
			return nil, fmt.Errorf("inserting session: %w", err)
		}
		return sess, nil
	})
}

// Get retrieves a live session by ID.
func (s *Store) Get(ctx context.Context, id string) (*types.Session, error) {
	query, args, err := selectLive(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	return scanSession(s.db.QueryRowContext(ctx, query, args...))
}

// Update locks the row for the duration of the mutator.
func (s *Store) Update(ctx context.Context, id string, fn store.Mutator) (*types.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := selectLive(id).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	cur, err := scanSession(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID, next.CreatedAt, next.ExpiresAt = cur.ID, cur.CreatedAt, cur.ExpiresAt

	participants, err := json.Marshal(next.Participants)
	if err != nil {
		return nil, fmt.Errorf("marshaling participants: %w", err)
	}
	query, args, err = psq.Update(table).
		Set("code", next.Code).
		Set("language", next.Language).
		Set("title", next.Title).
		Set("participants", participants).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session update: %w", err)
	}
	return next, nil
}

// Cleanup removes expired sessions.
func (s *Store) Cleanup(ctx context.Context) error {
	query, args, err := psq.Delete(table).Where("expires_at <= NOW()").ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the *sql.DB belongs to the caller.
func (s *Store) Close() error { return nil }

func selectLive(id string) sq.SelectBuilder {
	return psq.Select(sessionColumns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Where("expires_at > NOW()")
}

func scanSession(row *sql.Row) (*types.Session, error) {
	var (
		sess         types.Session
		participants []byte
	)
	err := row.Scan(&sess.ID, &sess.Code, &sess.Language, &sess.Title, &participants, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &sess.Participants); err != nil {
			return nil, fmt.Errorf("unmarshaling participants: %w", err)
		}
	}
	if sess.Participants == nil {
		sess.Participants = []string{}
	}
	return &sess, nil
}

// Verify interface compliance.
var _ store.SessionStore = (*Store)(nil)
