package types

import "encoding/json"

// Realtime event names.
const (
	EventJoinSession    = "join_session"
	EventLeaveSession   = "leave_session"
	EventCodeUpdate     = "code_update"
	EventLanguageChange = "language_change"
	EventCursorUpdate   = "cursor_update"

	EventSyncCode         = "sync_code"
	EventParticipantsList = "participants_list"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventCodeChanged      = "code_changed"
	EventLanguageChanged  = "language_changed"
	EventCursorPosition   = "cursor_position"
	EventError            = "error"
)

// Envelope is the frame exchanged over the realtime channel in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinSession struct {
	SessionID string `json:"sessionId"`
	UserName  string `json:"userName"`
}

type LeaveSession struct {
	SessionID string `json:"sessionId"`
}

type CodeUpdate struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
}

type LanguageChange struct {
	SessionID string `json:"sessionId"`
	Language  string `json:"language"`
}

type CursorUpdate struct {
	SessionID string `json:"sessionId"`
	UserName  string `json:"userName"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
}

type SyncCode struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type UserJoined struct {
	UserName         string `json:"userName"`
	ParticipantCount int    `json:"participantCount"`
}

type UserLeft struct {
	UserName         string `json:"userName,omitempty"`
	ParticipantCount int    `json:"participantCount"`
}

type CodeChanged struct {
	Code string `json:"code"`
}

type LanguageChanged struct {
	Language string `json:"language"`
}

type CursorPosition struct {
	UserName string `json:"userName"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
