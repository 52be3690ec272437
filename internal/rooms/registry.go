package rooms

import (
	"errors"
	"sync"
	"time"
)

// ErrNoRoom means no live room exists for the session on this instance.
var ErrNoRoom = errors.New("room not found")

// Registry maps session ids to rooms. Lock order is registry then room;
// nothing holding a room lock may call back into the registry.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	epoch uint64
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room), now: time.Now}
}

// GetOrCreate returns the room for sessionID, seeding a new one if absent.
// At most one room exists per session id.
func (g *Registry) GetOrCreate(sessionID, seedCode, seedLanguage string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[sessionID]; ok {
		return r, false
	}
	g.epoch++
	r := newRoom(sessionID, g.epoch, seedCode, seedLanguage, g.now)
	g.rooms[sessionID] = r
	roomsActive.Set(float64(len(g.rooms)))
	return r, true
}

func (g *Registry) Get(sessionID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[sessionID]
	return r, ok
}

// Join runs fn under the room lock, creating the room from the seed if needed.
// A room evicted between lookup and lock is replaced rather than joined.
func (g *Registry) Join(sessionID, seedCode, seedLanguage string, fn func(*Room) error) error {
	for {
		r, _ := g.GetOrCreate(sessionID, seedCode, seedLanguage)
		r.mu.Lock()
		if r.evicted {
			r.mu.Unlock()
			continue
		}
		err := fn(r)
		r.mu.Unlock()
		return err
	}
}

// Do runs fn under the room lock. It returns ErrNoRoom when the session has no live room.
func (g *Registry) Do(sessionID string, fn func(*Room) error) error {
	r, ok := g.Get(sessionID)
	if !ok {
		return ErrNoRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.evicted {
		return ErrNoRoom
	}
	return fn(r)
}

// AddClient registers a member in an existing room.
func (g *Registry) AddClient(sessionID, clientID, name string) error {
	return g.Do(sessionID, func(r *Room) error {
		r.Add(clientID, name)
		return nil
	})
}

// RemoveClient never fails; a missing room or member reports false.
func (g *Registry) RemoveClient(sessionID, clientID string) (remaining int, removed bool) {
	_ = g.Do(sessionID, func(r *Room) error {
		removed = r.Remove(clientID)
		remaining = r.Len()
		return nil
	})
	return remaining, removed
}

func (g *Registry) SetCode(sessionID, code string) error {
	return g.Do(sessionID, func(r *Room) error {
		r.SetCode(code)
		return nil
	})
}

func (g *Registry) SetLanguage(sessionID, language string) error {
	return g.Do(sessionID, func(r *Room) error {
		r.SetLanguage(language)
		return nil
	})
}

// Sweep evicts rooms that have had no members for at least idle. Busy rooms
// are skipped and looked at again on the next sweep.
func (g *Registry) Sweep(idle time.Duration) []string {
	return g.SweepExcept(idle, nil)
}

// SweepExcept is Sweep that also keeps every room for which keep returns
// true. keep runs under the room lock.
func (g *Registry) SweepExcept(idle time.Duration, keep func(sessionID string) bool) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := g.now().Add(-idle)
	var evicted []string
	for id, r := range g.rooms {
		if !r.mu.TryLock() {
			continue
		}
		if r.Len() == 0 && !r.lastActive.After(cutoff) && (keep == nil || !keep(id)) {
			r.evicted = true
			delete(g.rooms, id)
			evicted = append(evicted, id)
		}
		r.mu.Unlock()
	}
	roomsActive.Set(float64(len(g.rooms)))
	roomsEvictedTotal.Add(float64(len(evicted)))
	return evicted
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
