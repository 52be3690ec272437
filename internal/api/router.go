package api

import (
    "net/http"

    "github.com/gorilla/mux"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) http.Handler {
    r := mux.NewRouter()
    r.Use(h.logRequests, h.cors)

    // preflight for every path
    r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusNoContent)
    })

    r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
    r.HandleFunc("/readyz", h.HandleReady).Methods(http.MethodGet)
    r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
    if h.ws != nil {
        r.Handle("/ws", h.ws).Methods(http.MethodGet)
    }

    mountAPI(r.PathPrefix("/api").Subrouter(), h)
    mountAPI(r, h)
    return r
}

func mountAPI(r *mux.Router, h *Handlers) {
    r.HandleFunc("/sessions", h.HandleCreateSession).Methods(http.MethodPost)
    r.HandleFunc("/sessions/{id}", h.HandleGetSession).Methods(http.MethodGet)
    r.HandleFunc("/sessions/{id}/events", h.HandleListEvents).Methods(http.MethodGet)
    r.HandleFunc("/execute", h.HandleExecute).Methods(http.MethodPost)
    r.HandleFunc("/languages", h.HandleLanguages).Methods(http.MethodGet)
}
