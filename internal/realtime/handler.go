// Package realtime serves the interview websocket channel.
package realtime

import (
    "context"
    "log/slog"
    "net/http"
    "time"

    "yuzu/interview/internal/collab"
    "yuzu/interview/internal/hub"

    ws "nhooyr.io/websocket"
)

type Server struct {
    Coord        *collab.Coordinator
    Origins      []string
    ReadLimit    int64
    WriteTimeout time.Duration
    PingInterval time.Duration
    Log          *slog.Logger
}

func NewServer(coord *collab.Coordinator, logger *slog.Logger) *Server {
    return &Server{
        Coord:        coord,
        ReadLimit:    1 << 20,
        WriteTimeout: 10 * time.Second,
        PingInterval: 30 * time.Second,
        Log:          logger,
    }
}

// HandleWS upgrades the request and runs the connection until either side closes it.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
    c, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: s.Origins})
    if err != nil {
        s.Log.Warn("ws accept failed", "remote_addr", r.RemoteAddr, "error", err)
        return
    }
    if s.ReadLimit > 0 {
        c.SetReadLimit(s.ReadLimit)
    }

    cl := s.Coord.OnConnect(r.RemoteAddr)
    log := s.Log.With("client_id", cl.ID)
    log.Info("ws connected", "remote_addr", r.RemoteAddr)

    ctx, cancel := context.WithCancel(r.Context())
    defer cancel()

    writerDone := make(chan struct{})
    go func() {
        defer close(writerDone)
        defer cancel()
        if err := s.writeLoop(ctx, c, cl); err != nil {
            log.Debug("ws writer stopped", "error", err)
        }
    }()

    for {
        typ, data, err := c.Read(ctx)
        if err != nil {
            if status := ws.CloseStatus(err); status != ws.StatusNormalClosure && status != ws.StatusGoingAway && ctx.Err() == nil {
                log.Debug("ws read ended", "error", err)
            }
            break
        }
        if typ != ws.MessageText && typ != ws.MessageBinary {
            continue
        }
        s.Coord.HandleFrame(ctx, cl.ID, data)
    }

    s.Coord.OnDisconnect(cl.ID)
    cancel()
    <-writerDone
    _ = c.Close(ws.StatusNormalClosure, "done")
    log.Info("ws disconnected")
}

// writeLoop drains the client's outbox in order and keeps the connection alive.
func (s *Server) writeLoop(ctx context.Context, c *ws.Conn, cl *hub.Client) error {
    var ping <-chan time.Time
    if s.PingInterval > 0 {
        t := time.NewTicker(s.PingInterval)
        defer t.Stop()
        ping = t.C
    }
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case frame, ok := <-cl.Outbox():
            if !ok {
                return nil
            }
            if err := s.write(ctx, c, frame); err != nil {
                return err
            }
        case <-ping:
            pctx, cancel := context.WithTimeout(ctx, s.WriteTimeout)
            err := c.Ping(pctx)
            cancel()
            if err != nil {
                return err
            }
        }
    }
}

func (s *Server) write(ctx context.Context, c *ws.Conn, frame []byte) error {
    if s.WriteTimeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, s.WriteTimeout)
        defer cancel()
    }
    return c.Write(ctx, ws.MessageText, frame)
}
