package api

import (
    "bufio"
    "errors"
    "net"
    "net/http"
    "net/url"
    "time"
)

// cors allows CLIENT_URL and ALLOWED_ORIGINS; "*" in the list allows any origin.
func (h *Handlers) cors(next http.Handler) http.Handler {
    allowed := make(map[string]bool)
    for _, o := range h.cfg.Origins() {
        allowed[o] = true
    }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if origin := r.Header.Get("Origin"); origin != "" {
            switch {
            case allowed["*"]:
                w.Header().Set("Access-Control-Allow-Origin", "*")
            case allowed[originHost(origin)]:
                w.Header().Set("Access-Control-Allow-Origin", origin)
                w.Header().Add("Vary", "Origin")
            }
            w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
            w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
            w.Header().Set("Access-Control-Max-Age", "86400")
        }
        next.ServeHTTP(w, r)
    })
}

func originHost(origin string) string {
    u, err := url.Parse(origin)
    if err != nil {
        return ""
    }
    return u.Host
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (s *statusRecorder) WriteHeader(code int) {
    s.status = code
    s.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    hj, ok := s.ResponseWriter.(http.Hijacker)
    if !ok {
        return nil, nil, errors.New("response writer does not support hijacking")
    }
    s.status = http.StatusSwitchingProtocols
    return hj.Hijack()
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(rec, r)
        h.log.Debug("http request",
            "method", r.Method,
            "path", r.URL.Path,
            "status", rec.status,
            "duration_ms", time.Since(start).Milliseconds(),
        )
    })
}
