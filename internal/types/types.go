package types

import (
	"slices"
	"time"
)

// Defaults applied to every newly created session.
const (
	DefaultCode     = "// Start coding here\n"
	DefaultLanguage = "javascript"
	DefaultTitle    = "Coding Interview"
)

type Session struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Language     string    `json:"language"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Participants []string  `json:"participants"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = slices.Clone(s.Participants)
	if c.Participants == nil {
		c.Participants = []string{}
	}
	return &c
}

func (s *Session) HasParticipant(name string) bool {
	return slices.Contains(s.Participants, name)
}

// AddParticipant appends name unless it is already listed. The first join keeps its position.
func (s *Session) AddParticipant(name string) bool {
	if s.HasParticipant(name) {
		return false
	}
	s.Participants = append(s.Participants, name)
	return true
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
