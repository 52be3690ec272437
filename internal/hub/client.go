package hub

import (
	"sync"
	"time"
)

// Client is one realtime connection. Lock/Unlock serialize the client's
// join, leave and disconnect; the room fields below are guarded by that lock.
type Client struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	op       sync.Mutex
	room     string
	name     string
	terminal bool

	sendMu sync.Mutex
	closed bool
	send   chan []byte
}

func (c *Client) Lock()   { c.op.Lock() }
func (c *Client) Unlock() { c.op.Unlock() }

// Room returns the joined session and display name, empty when not joined.
func (c *Client) Room() (sessionID, name string) { return c.room, c.name }

func (c *Client) SetRoom(sessionID, name string) {
	c.room, c.name = sessionID, name
}

func (c *Client) ClearRoom() { c.room, c.name = "", "" }

// MarkTerminal reports false if the client was already terminal.
func (c *Client) MarkTerminal() bool {
	if c.terminal {
		return false
	}
	c.terminal = true
	return true
}

func (c *Client) Terminal() bool { return c.terminal }

// Outbox is drained by the connection writer. It is closed on disconnect.
func (c *Client) Outbox() <-chan []byte { return c.send }

// enqueue never blocks. A full queue drops the newest frame.
func (c *Client) enqueue(frame []byte) (ok, dropped bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.send <- frame:
		return true, false
	default:
		return false, true
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// QueueLen reports frames waiting to be written.
func (c *Client) QueueLen() int { return len(c.send) }
