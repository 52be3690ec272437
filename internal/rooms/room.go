// Package rooms holds the live, per-instance state of active sessions.
package rooms

import (
	"sort"
	"sync"
	"time"
)

// Room is the broadcast group for one session. Its accessors must only be
// called from inside Registry.Do or Registry.Join, which hold the room lock.
type Room struct {
	ID    string
	epoch uint64

	mu         sync.Mutex
	code       string
	language   string
	members    map[string]string // client id -> display name
	rev        uint64
	lastActive time.Time
	evicted    bool
	now        func() time.Time
}

func newRoom(id string, epoch uint64, code, language string, now func() time.Time) *Room {
	return &Room{
		ID:         id,
		epoch:      epoch,
		code:       code,
		language:   language,
		members:    make(map[string]string),
		lastActive: now(),
		now:        now,
	}
}

func (r *Room) Code() string     { return r.code }
func (r *Room) Language() string { return r.language }

// Rev increases with every accepted code or language change.
func (r *Room) Rev() uint64 { return r.rev }

func (r *Room) Len() int { return len(r.members) }

func (r *Room) Has(clientID string) bool {
	_, ok := r.members[clientID]
	return ok
}

// Name returns the display name a member joined with.
func (r *Room) Name(clientID string) (string, bool) {
	n, ok := r.members[clientID]
	return n, ok
}

// Members returns member client ids in a stable order.
func (r *Room) Members() []string {
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Add registers clientID and reports whether it was new to the room.
func (r *Room) Add(clientID, name string) bool {
	_, existed := r.members[clientID]
	r.members[clientID] = name
	r.lastActive = r.now()
	return !existed
}

func (r *Room) Remove(clientID string) bool {
	if _, ok := r.members[clientID]; !ok {
		return false
	}
	delete(r.members, clientID)
	r.lastActive = r.now()
	return true
}

// SetCode is last-writer-wins; no merge is attempted.
func (r *Room) SetCode(code string) {
	r.code = code
	r.rev++
	r.lastActive = r.now()
}

func (r *Room) SetLanguage(language string) {
	r.language = language
	r.rev++
	r.lastActive = r.now()
}

// Snapshot is a copy of room state taken under the room lock. Epoch orders
// rooms that replaced an evicted room for the same session.
type Snapshot struct {
	SessionID string
	Code      string
	Language  string
	Epoch     uint64
	Rev       uint64
}

func (r *Room) Snapshot() Snapshot {
	return Snapshot{SessionID: r.ID, Code: r.code, Language: r.language, Epoch: r.epoch, Rev: r.rev}
}

// Newer reports whether s reflects a later state than o of the same session.
func (s Snapshot) Newer(o Snapshot) bool {
	if s.Epoch != o.Epoch {
		return s.Epoch > o.Epoch
	}
	return s.Rev > o.Rev
}
