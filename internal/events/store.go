// Package events keeps a bounded activity journal per interview session.
package events

import (
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
)

// Journal entry types.
const (
    TypeSessionCreated    = "session_created"
    TypeParticipantJoined = "participant_joined"
    TypeParticipantLeft   = "participant_left"
    TypeLanguageChanged   = "language_changed"
    TypeCodeExecuted      = "code_executed"
    TypeTruncated         = "events_truncated"
)

const DefaultMaxEvents = 200

type Event struct {
    ID        string         `json:"id"`
    SessionID string         `json:"session_id"`
    Type      string         `json:"type"`
    Timestamp time.Time      `json:"timestamp"`
    Payload   map[string]any `json:"payload,omitempty"`
}

type Store struct {
    mu     sync.RWMutex
    bySess map[string][]Event
    max    int
}

func NewStore(maxEvents int) *Store {
    if maxEvents <= 1 {
        maxEvents = DefaultMaxEvents
    }
    return &Store{bySess: make(map[string][]Event), max: maxEvents}
}

func (s *Store) Append(sessionID, typ string, payload map[string]any) Event {
    evt := Event{
        ID:        uuid.NewString(),
        SessionID: sessionID,
        Type:      typ,
        Timestamp: time.Now().UTC(),
        Payload:   payload,
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    list := append(s.bySess[sessionID], evt)
    if l := len(list); l > s.max {
        // Keep space for a single truncation warning so the total stays at max
        keep := s.max - 1
        dropped := l - keep
        list = append([]Event(nil), list[l-keep:]...)
        list = append(list, Event{
            ID:        uuid.NewString(),
            SessionID: sessionID,
            Type:      TypeTruncated,
            Timestamp: time.Now().UTC(),
            Payload:   map[string]any{"dropped": dropped, "kept": keep},
        })
    }
    s.bySess[sessionID] = list
    return evt
}

func (s *Store) List(sessionID string) []Event {
    s.mu.RLock()
    defer s.mu.RUnlock()
    // return a shallow copy to avoid external mutation
    src := s.bySess[sessionID]
    out := make([]Event, len(src))
    copy(out, src)
    return out
}

// Forget drops everything recorded for a session.
func (s *Store) Forget(sessionID string) {
    s.mu.Lock()
    delete(s.bySess, sessionID)
    s.mu.Unlock()
}

// Sessions lists session ids with at least one entry, sorted.
func (s *Store) Sessions() []string {
    s.mu.RLock()
    out := make([]string, 0, len(s.bySess))
    for id := range s.bySess {
        out = append(out, id)
    }
    s.mu.RUnlock()
    sort.Strings(out)
    return out
}
