package main

import (
    "context"
    "database/sql"
    "fmt"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "yuzu/interview/internal/api"
    "yuzu/interview/internal/collab"
    "yuzu/interview/internal/config"
    "yuzu/interview/internal/events"
    "yuzu/interview/internal/executor"
    "yuzu/interview/internal/health"
    "yuzu/interview/internal/hub"
    "yuzu/interview/internal/realtime"
    "yuzu/interview/internal/rooms"
    "yuzu/interview/internal/store"
    pgstore "yuzu/interview/internal/store/postgres"
    redisstore "yuzu/interview/internal/store/redis"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeBackend, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("session store unavailable", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	h := hub.New(cfg.Hub.SendQueueSize, logger)
	coord := collab.New(st, rooms.NewRegistry(), h, collab.Options{
		Logger:  logger,
		Journal: events.NewStore(cfg.Session.JournalSize),
	})
	exec := executor.NewClient(cfg.Executor.URL, cfg.Executor.Timeout)

	wss := realtime.NewServer(coord, logger)
	wss.Origins = cfg.Origins()
	wss.ReadLimit = cfg.Hub.MaxMessageBytes
	wss.WriteTimeout = cfg.Hub.WriteTimeout
	wss.PingInterval = cfg.Hub.PingInterval

	handlers := api.NewHandlers(cfg, coord, exec, http.HandlerFunc(wss.HandleWS), logger,
		health.Check{Name: "store_" + cfg.Session.Backend, Pinger: st},
		health.Check{Name: "executor", Pinger: exec},
	)

	go coord.RunJanitor(ctx, cfg.Session.CleanupInterval, cfg.Session.RoomIdleTimeout)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		logger.Info("shutdown signal received; stopping server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown
		h.Shutdown()
		_ = srv.Shutdown(sctx)
		if err := coord.Close(sctx); err != nil {
			logger.Warn("pending room state not written back", "error", err)
		}
	}()

	logger.Info("server starting", "addr", addr, "backend", cfg.Session.Backend, "client_url", cfg.Server.ClientURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	<-drained
}

// openStore builds the configured session backend and returns a func that
// releases its resources.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.SessionStore, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		rdb, err := redisstore.Open(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		st := redisstore.New(rdb, redisstore.Config{KeyPrefix: cfg.Redis.KeyPrefix, TTL: cfg.Session.TTL})
		return st, func() { _ = st.Close() }, nil

	case config.BackendPostgres:
		db, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := pgstore.Migrate(db, logger); err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return pgstore.New(db, pgstore.Config{TTL: cfg.Session.TTL}), closeDB(db), nil

	default:
		return store.NewMemoryStore(cfg.Session.TTL), func() {}, nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
