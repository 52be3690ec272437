package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"yuzu/interview/internal/hub"
	"yuzu/interview/internal/types"
)

type handlerFunc func(ctx context.Context, cl *hub.Client, data json.RawMessage) error

func (c *Coordinator) dispatchTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		types.EventJoinSession:    c.onJoin,
		types.EventLeaveSession:   c.onLeave,
		types.EventCodeUpdate:     c.onCodeUpdate,
		types.EventLanguageChange: c.onLanguageChange,
		types.EventCursorUpdate:   c.onCursorUpdate,
	}
}

// HandleFrame decodes one inbound frame and dispatches it.
func (c *Coordinator) HandleFrame(ctx context.Context, clientID string, frame []byte) {
	var env types.Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		c.reply(clientID, "", invalid("Malformed message"))
		return
	}
	c.Dispatch(ctx, clientID, env)
}

// Dispatch routes one event to its handler. Failures are answered to the
// sender or logged; they never reach other clients or the connection.
func (c *Coordinator) Dispatch(ctx context.Context, clientID string, env types.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			dispatchErrorsTotal.WithLabelValues(env.Event, "panic").Inc()
			c.log.Error("handler panic", "event", env.Event, "client_id", clientID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	h, ok := c.handlers[env.Event]
	if !ok {
		c.reply(clientID, env.Event, invalid("Unknown event '%s'", env.Event))
		return
	}
	cl, ok := c.hub.Get(clientID)
	if !ok {
		return
	}
	dispatchTotal.WithLabelValues(env.Event).Inc()
	if err := h(ctx, cl, env.Data); err != nil {
		c.reply(clientID, env.Event, err)
	}
}

func (c *Coordinator) reply(clientID, event string, err error) {
	if errors.Is(err, ErrClientGone) {
		c.log.Debug("client gone before request completed", "event", event, "client_id", clientID)
		return
	}
	msg, public := userMessage(err)
	if !public {
		dispatchErrorsTotal.WithLabelValues(event, "internal").Inc()
		c.log.Error("handler failed", "event", event, "client_id", clientID, "error", err)
		return
	}
	dispatchErrorsTotal.WithLabelValues(event, "rejected").Inc()
	c.log.Debug("request rejected", "event", event, "client_id", clientID, "reason", msg)
	_ = c.hub.Send(clientID, types.EventError, types.ErrorMessage{Message: msg})
}

func decode(event string, data json.RawMessage, v any) error {
	if len(data) == 0 {
		return invalid("Invalid %s payload", event)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalid("Invalid %s payload", event)
	}
	return nil
}

func (c *Coordinator) onJoin(ctx context.Context, cl *hub.Client, data json.RawMessage) error {
	var p types.JoinSession
	if err := decode(types.EventJoinSession, data, &p); err != nil {
		return err
	}
	_, err := c.JoinRoom(ctx, cl.ID, p.SessionID, p.UserName)
	return err
}

func (c *Coordinator) onLeave(ctx context.Context, cl *hub.Client, data json.RawMessage) error {
	var p types.LeaveSession
	if err := decode(types.EventLeaveSession, data, &p); err != nil {
		return err
	}
	return c.LeaveRoom(ctx, cl.ID, p.SessionID)
}

func (c *Coordinator) onCodeUpdate(ctx context.Context, cl *hub.Client, data json.RawMessage) error {
	var p types.CodeUpdate
	if err := decode(types.EventCodeUpdate, data, &p); err != nil {
		return err
	}
	return c.UpdateCode(ctx, cl.ID, p.SessionID, p.Code)
}

func (c *Coordinator) onLanguageChange(ctx context.Context, cl *hub.Client, data json.RawMessage) error {
	var p types.LanguageChange
	if err := decode(types.EventLanguageChange, data, &p); err != nil {
		return err
	}
	return c.ChangeLanguage(ctx, cl.ID, p.SessionID, p.Language)
}

func (c *Coordinator) onCursorUpdate(ctx context.Context, cl *hub.Client, data json.RawMessage) error {
	var p types.CursorUpdate
	if err := decode(types.EventCursorUpdate, data, &p); err != nil {
		return err
	}
	return c.UpdateCursor(ctx, cl.ID, p.SessionID, p.Line, p.Column)
}
