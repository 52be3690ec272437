// Package redis provides a Redis-backed session store so several server
// instances can share session records.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"yuzu/interview/internal/store"
	"yuzu/interview/internal/types"
)

const defaultMaxRetries = 10

// ErrContention is returned when optimistic retries are exhausted.
var ErrContention = errors.New("session update contention")

// Store implements store.SessionStore. Each session is one JSON string key
// whose Redis TTL is the session lifetime.
type Store struct {
	rdb        *goredis.Client
	prefix     string
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
}

type Config struct {
	KeyPrefix  string
	TTL        time.Duration
	MaxRetries int
}

func New(rdb *goredis.Client, cfg Config) *Store {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Store{
		rdb:        rdb,
		prefix:     cfg.KeyPrefix,
		ttl:        cfg.TTL,
		maxRetries: cfg.MaxRetries,
		now:        time.Now,
	}
}

// Open accepts redis:// and rediss:// URLs as well as a bare host:port.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	var opts *goredis.Options
	if strings.Contains(url, "://") {
		var err error
		opts, err = goredis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
	} else {
		opts = &goredis.Options{Addr: url}
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rdb, nil
}

func (s *Store) key(id string) string { return s.prefix + id }

func (s *Store) Create(ctx context.Context) (*types.Session, error) {
	return store.CreateWithRetry(func(id string) (*types.Session, error) {
		sess := store.NewSession(id, s.now(), s.ttl)
		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("marshaling session: %w", err)
		}
		ok, err := s.rdb.SetNX(ctx, s.key(id), data, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("storing session: %w", err)
		}
		if !ok {
			return nil, store.ErrSessionExists
		}
		return sess, nil
	})
}

func (s *Store) Get(ctx context.Context, id string) (*types.Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		return nil, translate(err)
	}
	return s.decode(raw)
}

// Update runs fn inside WATCH/MULTI and retries when another writer got there first.
func (s *Store) Update(ctx context.Context, id string, fn store.Mutator) (*types.Session, error) {
	key := s.key(id)
	var out *types.Session
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return translate(err)
		}
		cur, err := s.decode(raw)
		if err != nil {
			return err
		}
		next := cur.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID, next.CreatedAt, next.ExpiresAt = cur.ID, cur.CreatedAt, cur.ExpiresAt
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, goredis.KeepTTL)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for iter, n := 0, s.maxRetries; iter < n; iter++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("updating session %s: %w", id, ErrContention)
}

// Cleanup is a no-op; Redis expires keys itself.
func (s *Store) Cleanup(context.Context) error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) decode(raw []byte) (*types.Session, error) {
	var sess types.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	// guards against keys written without a TTL
	if sess.Expired(s.now()) {
		return nil, store.ErrNotFound
	}
	if sess.Participants == nil {
		sess.Participants = []string{}
	}
	return &sess, nil
}

func translate(err error) error {
	if errors.Is(err, goredis.Nil) {
		return store.ErrNotFound
	}
	return fmt.Errorf("reading session: %w", err)
}

// Verify interface compliance.
var _ store.SessionStore = (*Store)(nil)
