// Package hub tracks realtime connections and fans frames out to them.
package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"yuzu/interview/internal/types"
)

const DefaultQueueSize = 256

var ErrUnknownClient = errors.New("unknown client")

type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	queueSize int
	log       *slog.Logger
}

func New(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[string]*Client), queueSize: queueSize, log: logger}
}

// Connect registers an anonymous connection.
func (h *Hub) Connect(remoteAddr string) *Client {
	c := &Client{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().UTC(),
		send:        make(chan []byte, h.queueSize),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	connectionsActive.Set(float64(n))
	connectionsTotal.Inc()
	return c
}

func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Disconnect deregisters the client and closes its outbox. It returns nil if
// the client was already gone.
func (h *Hub) Disconnect(id string) *Client {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	c.close()
	connectionsActive.Set(float64(n))
	return c
}

// Encode builds the wire frame for an event.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return json.Marshal(types.Envelope{Event: event, Data: data})
}

// Send enqueues one event for a single client.
func (h *Hub) Send(id, event string, payload any) error {
	c, ok := h.Get(id)
	if !ok {
		return ErrUnknownClient
	}
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	h.deliver(c, event, frame)
	return nil
}

// Broadcast enqueues one event for every id except exclude and returns how
// many queues accepted it. Callers hold the room lock so per-room order is
// the order of these calls.
func (h *Hub) Broadcast(ids []string, event string, payload any, exclude string) (int, error) {
	frame, err := Encode(event, payload)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, id := range ids {
		if id == exclude {
			continue
		}
		c, ok := h.Get(id)
		if !ok {
			continue
		}
		if h.deliver(c, event, frame) {
			delivered++
		}
	}
	return delivered, nil
}

func (h *Hub) deliver(c *Client, event string, frame []byte) bool {
	ok, dropped := c.enqueue(frame)
	switch {
	case ok:
		messagesQueuedTotal.WithLabelValues(event).Inc()
	case dropped:
		messagesDroppedTotal.WithLabelValues(event).Inc()
		h.log.Warn("send queue full; dropping message",
			"client_id", c.ID, "event", event, "queue_size", h.queueSize)
	}
	return ok
}

func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every outbox so writers drain and exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
	connectionsActive.Set(0)
}
