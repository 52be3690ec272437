// Package collab coordinates joins, edits and fan-out for live interview sessions.
//
// Every change to a room and the broadcast announcing it happen under that
// room's lock, so all members observe changes in the order they were applied.
// Concurrent code edits are last-writer-wins.
package collab

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"yuzu/interview/internal/events"
	"yuzu/interview/internal/executor"
	"yuzu/interview/internal/hub"
	"yuzu/interview/internal/rooms"
	"yuzu/interview/internal/store"
	"yuzu/interview/internal/types"
)

const (
	maxNameRunes          = 64
	defaultPersistTimeout = 5 * time.Second
)

type Options struct {
	Logger         *slog.Logger
	Journal        *events.Store
	PersistTimeout time.Duration
}

type Coordinator struct {
	store    store.SessionStore
	rooms    *rooms.Registry
	hub      *hub.Hub
	journal  *events.Store
	log      *slog.Logger
	persist  *persister
	handlers map[string]handlerFunc
}

// JoinResult is the state handed to a client as of its join.
type JoinResult struct {
	Code             string
	Language         string
	Participants     []string
	ParticipantCount int
}

func New(st store.SessionStore, reg *rooms.Registry, h *hub.Hub, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Journal == nil {
		opts.Journal = events.NewStore(events.DefaultMaxEvents)
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	c := &Coordinator{
		store:   st,
		rooms:   reg,
		hub:     h,
		journal: opts.Journal,
		log:     opts.Logger,
		persist: newPersister(st, opts.PersistTimeout, opts.Logger),
	}
	c.handlers = c.dispatchTable()
	return c
}

func (c *Coordinator) Journal() *events.Store { return c.journal }

// CreateSession stores a new session with default content.
func (c *Coordinator) CreateSession(ctx context.Context) (*types.Session, error) {
	sess, err := c.store.Create(ctx)
	if err != nil {
		return nil, err
	}
	c.journal.Append(sess.ID, events.TypeSessionCreated, nil)
	c.log.Info("session created", "session_id", sess.ID)
	return sess, nil
}

// Session returns the stored session with live room state laid over it, so
// readers see edits that have not been written back yet.
func (c *Coordinator) Session(ctx context.Context, id string) (*types.Session, error) {
	sess, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = c.rooms.Do(id, func(r *rooms.Room) error {
		sess.Code = r.Code()
		sess.Language = r.Language()
		return nil
	})
	return sess, nil
}

// OnConnect registers a new anonymous connection and returns its handle.
func (c *Coordinator) OnConnect(remoteAddr string) *hub.Client {
	cl := c.hub.Connect(remoteAddr)
	c.log.Debug("client connected", "client_id", cl.ID, "remote_addr", remoteAddr)
	return cl
}

// OnDisconnect removes the client from its room, telling the remaining
// members once, and deregisters it. Repeated calls are no-ops.
func (c *Coordinator) OnDisconnect(clientID string) {
	cl, ok := c.hub.Get(clientID)
	if !ok {
		return
	}
	cl.Lock()
	if cl.MarkTerminal() {
		if room, name := cl.Room(); room != "" {
			c.leaveLocked(cl, room, name)
		}
	}
	cl.Unlock()
	c.hub.Disconnect(clientID)
	c.log.Debug("client disconnected", "client_id", clientID)
}

// JoinRoom adds the client to a session's room. An unknown session returns
// store.ErrNotFound and leaves every room and session untouched.
func (c *Coordinator) JoinRoom(ctx context.Context, clientID, sessionID, displayName string) (*JoinResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	displayName = strings.TrimSpace(displayName)
	if sessionID == "" {
		return nil, invalid("sessionId is required")
	}
	if displayName == "" {
		return nil, invalid("userName is required")
	}
	if utf8.RuneCountInString(displayName) > maxNameRunes {
		return nil, invalid("userName must be at most %d characters", maxNameRunes)
	}

	cl, ok := c.hub.Get(clientID)
	if !ok {
		return nil, ErrClientGone
	}
	cl.Lock()
	defer cl.Unlock()
	if cl.Terminal() {
		return nil, ErrClientGone
	}

	sess, err := c.store.Update(ctx, sessionID, func(s *types.Session) error {
		s.AddParticipant(displayName)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if prev, prevName := cl.Room(); prev != "" && prev != sessionID {
		c.leaveLocked(cl, prev, prevName)
	}

	var res JoinResult
	err = c.rooms.Join(sessionID, sess.Code, sess.Language, func(r *rooms.Room) error {
		fresh := r.Add(cl.ID, displayName)
		cl.SetRoom(sessionID, displayName)
		res = JoinResult{
			Code:             r.Code(),
			Language:         r.Language(),
			Participants:     sess.Participants,
			ParticipantCount: r.Len(),
		}
		if err := c.hub.Send(cl.ID, types.EventSyncCode, types.SyncCode{Code: res.Code, Language: res.Language}); err != nil {
			return err
		}
		if fresh {
			if _, err := c.hub.Broadcast(r.Members(), types.EventUserJoined, types.UserJoined{
				UserName:         displayName,
				ParticipantCount: res.ParticipantCount,
			}, cl.ID); err != nil {
				return err
			}
		}
		return c.hub.Send(cl.ID, types.EventParticipantsList, res.Participants)
	})
	if err != nil {
		return nil, err
	}

	c.journal.Append(sessionID, events.TypeParticipantJoined, map[string]any{
		"user_name":         displayName,
		"participant_count": res.ParticipantCount,
	})
	c.log.Info("participant joined", "session_id", sessionID, "client_id", cl.ID, "user_name", displayName, "participant_count", res.ParticipantCount)
	return &res, nil
}

// LeaveRoom returns the client to the connected state without closing it.
func (c *Coordinator) LeaveRoom(_ context.Context, clientID, sessionID string) error {
	cl, ok := c.hub.Get(clientID)
	if !ok {
		return ErrClientGone
	}
	cl.Lock()
	defer cl.Unlock()
	room, name := cl.Room()
	if room == "" || room != strings.TrimSpace(sessionID) {
		return notJoined()
	}
	c.leaveLocked(cl, room, name)
	return nil
}

// leaveLocked requires the client lock.
func (c *Coordinator) leaveLocked(cl *hub.Client, sessionID, name string) {
	remaining := 0
	removed := false
	err := c.rooms.Do(sessionID, func(r *rooms.Room) error {
		if !r.Remove(cl.ID) {
			return nil
		}
		removed = true
		remaining = r.Len()
		_, err := c.hub.Broadcast(r.Members(), types.EventUserLeft, types.UserLeft{
			UserName:         name,
			ParticipantCount: remaining,
		}, cl.ID)
		return err
	})
	cl.ClearRoom()
	if err != nil && !errors.Is(err, rooms.ErrNoRoom) {
		c.log.Error("leave broadcast failed", "session_id", sessionID, "client_id", cl.ID, "error", err)
	}
	if !removed {
		return
	}
	c.journal.Append(sessionID, events.TypeParticipantLeft, map[string]any{
		"user_name":         name,
		"participant_count": remaining,
	})
	c.log.Info("participant left", "session_id", sessionID, "client_id", cl.ID, "user_name", name, "participant_count", remaining)
}

// UpdateCode replaces the room's code and tells every other member.
func (c *Coordinator) UpdateCode(_ context.Context, clientID, sessionID, code string) error {
	var snap rooms.Snapshot
	err := c.mutate(sessionID, clientID, func(r *rooms.Room) error {
		r.SetCode(code)
		snap = r.Snapshot()
		_, err := c.hub.Broadcast(r.Members(), types.EventCodeChanged, types.CodeChanged{Code: code}, clientID)
		return err
	})
	if err != nil {
		return err
	}
	c.persist.schedule(snap)
	return nil
}

// ChangeLanguage accepts any language or alias the executor knows and stores
// its canonical name.
func (c *Coordinator) ChangeLanguage(_ context.Context, clientID, sessionID, language string) error {
	canonical, ok := executor.Canonical(language)
	if !ok {
		return invalid("Language '%s' is not supported", language)
	}
	var (
		snap rooms.Snapshot
		name string
	)
	err := c.mutate(sessionID, clientID, func(r *rooms.Room) error {
		name, _ = r.Name(clientID)
		r.SetLanguage(canonical)
		snap = r.Snapshot()
		_, err := c.hub.Broadcast(r.Members(), types.EventLanguageChanged, types.LanguageChanged{Language: canonical}, clientID)
		return err
	})
	if err != nil {
		return err
	}
	c.persist.schedule(snap)
	c.journal.Append(sessionID, events.TypeLanguageChanged, map[string]any{"language": canonical, "user_name": name})
	return nil
}

// UpdateCursor relays a cursor position. Cursors are not stored. The sender's
// joined name is used regardless of what the payload claims.
func (c *Coordinator) UpdateCursor(_ context.Context, clientID, sessionID string, line, column int) error {
	if line < 0 || column < 0 {
		return invalid("line and column must not be negative")
	}
	return c.mutate(sessionID, clientID, func(r *rooms.Room) error {
		name, _ := r.Name(clientID)
		_, err := c.hub.Broadcast(r.Members(), types.EventCursorPosition, types.CursorPosition{
			UserName: name,
			Line:     line,
			Column:   column,
		}, clientID)
		return err
	})
}

// BroadcastToRoom delivers an event to every member except exclude.
func (c *Coordinator) BroadcastToRoom(sessionID, event string, payload any, exclude string) error {
	return c.rooms.Do(sessionID, func(r *rooms.Room) error {
		_, err := c.hub.Broadcast(r.Members(), event, payload, exclude)
		return err
	})
}

// mutate runs fn under the room lock after checking the client is a member.
func (c *Coordinator) mutate(sessionID, clientID string, fn func(*rooms.Room) error) error {
	err := c.rooms.Do(strings.TrimSpace(sessionID), func(r *rooms.Room) error {
		if !r.Has(clientID) {
			return notJoined()
		}
		return fn(r)
	})
	if errors.Is(err, rooms.ErrNoRoom) {
		return notJoined()
	}
	return err
}

func notJoined() error { return invalid("Join the session before sending updates") }

// Flush waits for pending write-behind of room state to reach the store.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.persist.wait(ctx)
}

// Close stops accepting write-behind work and drains what is queued.
func (c *Coordinator) Close(ctx context.Context) error {
	return c.persist.close(ctx)
}
