package collab

import (
	"context"
	"errors"
	"time"

	"yuzu/interview/internal/store"
)

// RunJanitor sweeps idle rooms and expired sessions every interval until ctx ends.
func (c *Coordinator) RunJanitor(ctx context.Context, interval, roomIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx, roomIdle)
		}
	}
}

// Sweep evicts empty rooms idle for at least roomIdle, removes expired
// sessions from the store and drops journals of sessions that are gone.
// Rooms whose state has not reached the store stay live; their writes are
// retried and the room is looked at again on a later sweep.
func (c *Coordinator) Sweep(ctx context.Context, roomIdle time.Duration) {
	if n := c.persist.retry(); n > 0 {
		c.log.Info("retrying room write-behind", "count", n)
	}
	if evicted := c.rooms.SweepExcept(roomIdle, c.persist.pending); len(evicted) > 0 {
		c.persist.forget(evicted...)
		c.log.Debug("evicted idle rooms", "count", len(evicted))
	}
	if err := c.store.Cleanup(ctx); err != nil {
		c.log.Warn("session cleanup failed", "error", err)
	}
	for _, id := range c.journal.Sessions() {
		if _, ok := c.rooms.Get(id); ok {
			continue
		}
		if _, err := c.store.Get(ctx, id); errors.Is(err, store.ErrNotFound) {
			c.journal.Forget(id)
		}
	}
}
