package api

import (
    "context"
    "encoding/json"
    "errors"
    "log/slog"
    "net/http"
    "time"

    "github.com/gorilla/mux"
    "yuzu/interview/internal/collab"
    "yuzu/interview/internal/config"
    "yuzu/interview/internal/events"
    "yuzu/interview/internal/executor"
    "yuzu/interview/internal/health"
    "yuzu/interview/internal/store"
)

const readyTimeout = 3 * time.Second

type Handlers struct {
    cfg    config.Config
    coord  *collab.Coordinator
    exec   executor.Executor
    ws     http.Handler
    checks []health.Check
    log    *slog.Logger
}

func NewHandlers(cfg config.Config, coord *collab.Coordinator, exec executor.Executor, ws http.Handler, logger *slog.Logger, checks ...health.Check) *Handlers {
    return &Handlers{cfg: cfg, coord: coord, exec: exec, ws: ws, checks: checks, log: logger}
}

type errorBody struct {
    Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, errorBody{Error: msg})
}

func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
    sess, err := h.coord.CreateSession(r.Context())
    if err != nil {
        h.log.Error("create session failed", "error", err)
        writeError(w, http.StatusInternalServerError, "Failed to create session")
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "sessionId": sess.ID,
        "shareLink": h.cfg.Server.ClientURL + "/interview/" + sess.ID,
    })
}

func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    sess, err := h.coord.Session(r.Context(), id)
    if err != nil {
        h.sessionError(w, id, err)
        return
    }
    writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    if _, err := h.coord.Session(r.Context(), id); err != nil {
        h.sessionError(w, id, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "session_id": id,
        "events":     h.coord.Journal().List(id),
    })
}

func (h *Handlers) sessionError(w http.ResponseWriter, id string, err error) {
    if errors.Is(err, store.ErrNotFound) {
        writeError(w, http.StatusNotFound, "Session not found")
        return
    }
    h.log.Error("load session failed", "session_id", id, "error", err)
    writeError(w, http.StatusInternalServerError, "Failed to load session")
}

type executeRequest struct {
    executor.Request
    SessionID string `json:"sessionId,omitempty"`
}

func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
    var req executeRequest
    body := http.MaxBytesReader(w, r.Body, 2*executor.MaxCodeBytes)
    if err := json.NewDecoder(body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    res, err := h.exec.Execute(r.Context(), req.Request)
    if err != nil {
        var reqErr *executor.RequestError
        if errors.As(err, &reqErr) {
            writeError(w, http.StatusBadRequest, reqErr.Message)
            return
        }
        h.log.Error("execute failed", "language", req.Language, "error", err)
        writeError(w, http.StatusInternalServerError, "Execution failed")
        return
    }
    if req.SessionID != "" {
        h.recordExecution(r.Context(), req, res)
    }
    writeJSON(w, http.StatusOK, res)
}

// recordExecution journals a run against a session that still exists.
func (h *Handlers) recordExecution(ctx context.Context, req executeRequest, res executor.Result) {
    if _, err := h.coord.Session(ctx, req.SessionID); err != nil {
        if !errors.Is(err, store.ErrNotFound) {
            h.log.Warn("execution not journaled", "session_id", req.SessionID, "error", err)
        }
        return
    }
    h.coord.Journal().Append(req.SessionID, events.TypeCodeExecuted, map[string]any{
        "language": req.Language,
        "success":  res.Success,
    })
}

func (h *Handlers) HandleLanguages(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"languages": executor.Languages()})
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady probes the session store and executor.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
    defer cancel()
    status := health.CheckAll(ctx, h.checks...)
    code := http.StatusOK
    if !status.OK {
        code = http.StatusServiceUnavailable
    }
    writeJSON(w, code, status)
}
