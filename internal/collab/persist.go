package collab

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"yuzu/interview/internal/rooms"
	"yuzu/interview/internal/store"
	"yuzu/interview/internal/types"
)

// persister writes room code and language back to the session store outside
// the room lock. Writes are coalesced per session: at most one is in flight,
// and it always carries the newest snapshot seen. A session whose latest
// snapshot has not reached the store is pending until a retry succeeds.
type persister struct {
	store   store.SessionStore
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	latest map[string]rooms.Snapshot
	saved  map[string]rooms.Snapshot
	dirty  map[string]bool
	active map[string]bool
	closed bool
}

func newPersister(st store.SessionStore, timeout time.Duration, logger *slog.Logger) *persister {
	return &persister{
		store:   st,
		timeout: timeout,
		log:     logger,
		latest:  make(map[string]rooms.Snapshot),
		saved:   make(map[string]rooms.Snapshot),
		dirty:   make(map[string]bool),
		active:  make(map[string]bool),
	}
}

func (p *persister) schedule(s rooms.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if cur, ok := p.latest[s.SessionID]; ok && !s.Newer(cur) {
		return
	}
	p.latest[s.SessionID] = s
	p.dirty[s.SessionID] = true
	if p.active[s.SessionID] {
		return
	}
	p.active[s.SessionID] = true
	go p.run(s.SessionID)
}

func (p *persister) run(id string) {
	for {
		p.mu.Lock()
		if !p.dirty[id] {
			delete(p.active, id)
			delete(p.dirty, id)
			p.mu.Unlock()
			return
		}
		p.dirty[id] = false
		snap := p.latest[id]
		p.mu.Unlock()
		// a session that is gone has nothing left to save
		if err := p.flush(snap); err != nil && !errors.Is(err, store.ErrNotFound) {
			continue
		}
		p.mu.Lock()
		if cur, ok := p.saved[id]; !ok || snap.Newer(cur) {
			p.saved[id] = snap
		}
		p.mu.Unlock()
	}
}

func (p *persister) flush(s rooms.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	start := time.Now()
	_, err := p.store.Update(ctx, s.SessionID, func(sess *types.Session) error {
		sess.Code = s.Code
		sess.Language = s.Language
		return nil
	})
	persistLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		persistFailuresTotal.Inc()
		p.log.Warn("write-behind failed", "session_id", s.SessionID, "rev", s.Rev, "error", err)
	}
	return err
}

func (p *persister) unsavedLocked(id string) bool {
	latest, ok := p.latest[id]
	if !ok {
		return false
	}
	saved, ok := p.saved[id]
	return !ok || latest.Newer(saved)
}

// pending reports whether the session has a write in flight or a snapshot
// the store has not accepted yet.
func (p *persister) pending(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[id] || p.unsavedLocked(id)
}

// retry restarts the write for every session whose last attempt failed and
// returns how many were restarted.
func (p *persister) retry() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	n := 0
	for id := range p.latest {
		if p.active[id] || !p.unsavedLocked(id) {
			continue
		}
		p.dirty[id] = true
		p.active[id] = true
		go p.run(id)
		n++
	}
	return n
}

// forget drops bookkeeping for evicted rooms whose state reached the store.
func (p *persister) forget(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if p.active[id] || p.unsavedLocked(id) {
			continue
		}
		delete(p.latest, id)
		delete(p.saved, id)
	}
}

// wait polls until no write is in flight.
func (p *persister) wait(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		p.mu.Lock()
		idle := len(p.active) == 0
		p.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// close makes one last attempt at failed writes, then drains.
func (p *persister) close(ctx context.Context) error {
	p.retry()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.wait(ctx)
}
