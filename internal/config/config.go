package config

import (
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Session backends.
const (
    BackendMemory   = "memory"
    BackendRedis    = "redis"
    BackendPostgres = "postgres"
)

type Config struct {
    Server struct {
        Port            string
        LogLevel        string
        ClientURL       string
        AllowedOrigins  []string
        ShutdownTimeout time.Duration
    }
    Session struct {
        Backend         string
        TTL             time.Duration
        CleanupInterval time.Duration
        RoomIdleTimeout time.Duration
        JournalSize     int
    }
    Hub struct {
        SendQueueSize   int
        WriteTimeout    time.Duration
        PingInterval    time.Duration
        MaxMessageBytes int64
    }
    Redis struct {
        URL       string
        KeyPrefix string
    }
    Postgres struct {
        DSN         string
        AutoMigrate bool
    }
    Executor struct {
        URL     string
        Timeout time.Duration
    }
}

func Load() Config {
    v := viper.New()
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    // Defaults
    v.SetDefault("server.port", 5000)
    v.SetDefault("server.log_level", "info")
    v.SetDefault("server.client_url", "http://localhost:3000")
    v.SetDefault("server.shutdown_timeout", "5s")

    v.SetDefault("session.backend", BackendMemory)
    v.SetDefault("session.ttl", "24h")
    v.SetDefault("session.cleanup_interval", "1m")
    v.SetDefault("session.room_idle_timeout", "10m")
    v.SetDefault("session.journal_size", 200)

    v.SetDefault("hub.send_queue", 256)
    v.SetDefault("hub.write_timeout", "10s")
    v.SetDefault("hub.ping_interval", "30s")
    v.SetDefault("hub.max_message_bytes", 1<<20)

    v.SetDefault("redis.url", "redis://localhost:6379/0")
    v.SetDefault("redis.key_prefix", "interview:session:")

    v.SetDefault("postgres.auto_migrate", true)

    v.SetDefault("executor.url", "https://emkc.org/api/v2/piston")
    v.SetDefault("executor.timeout", "10s")

    // Map envs
    v.BindEnv("server.port", "PORT")
    v.BindEnv("server.log_level", "LOG_LEVEL")
    v.BindEnv("server.client_url", "CLIENT_URL")
    v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
    v.BindEnv("server.shutdown_timeout", "SHUTDOWN_TIMEOUT")

    v.BindEnv("session.backend", "SESSION_BACKEND")
    v.BindEnv("session.ttl", "SESSION_TTL")
    v.BindEnv("session.cleanup_interval", "SESSION_CLEANUP_INTERVAL")
    v.BindEnv("session.room_idle_timeout", "ROOM_IDLE_TIMEOUT")
    v.BindEnv("session.journal_size", "SESSION_JOURNAL_SIZE")

    v.BindEnv("hub.send_queue", "HUB_SEND_QUEUE")
    v.BindEnv("hub.write_timeout", "HUB_WRITE_TIMEOUT")
    v.BindEnv("hub.ping_interval", "HUB_PING_INTERVAL")
    v.BindEnv("hub.max_message_bytes", "WS_MAX_MESSAGE_BYTES")

    v.BindEnv("redis.url", "REDIS_URL")
    v.BindEnv("redis.key_prefix", "REDIS_KEY_PREFIX")

    v.BindEnv("postgres.dsn", "DATABASE_URL")
    v.BindEnv("postgres.auto_migrate", "DB_AUTO_MIGRATE")

    v.BindEnv("executor.url", "EXECUTOR_URL")
    v.BindEnv("executor.timeout", "EXECUTOR_TIMEOUT")

    var c Config
    c.Server.Port = toString(v.Get("server.port"))
    c.Server.LogLevel = v.GetString("server.log_level")
    c.Server.ClientURL = strings.TrimSuffix(v.GetString("server.client_url"), "/")
    c.Server.AllowedOrigins = splitList(v.GetString("server.allowed_origins"))
    c.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")

    c.Session.Backend = strings.ToLower(v.GetString("session.backend"))
    c.Session.TTL = v.GetDuration("session.ttl")
    c.Session.CleanupInterval = v.GetDuration("session.cleanup_interval")
    c.Session.RoomIdleTimeout = v.GetDuration("session.room_idle_timeout")
    c.Session.JournalSize = v.GetInt("session.journal_size")

    c.Hub.SendQueueSize = v.GetInt("hub.send_queue")
    c.Hub.WriteTimeout = v.GetDuration("hub.write_timeout")
    c.Hub.PingInterval = v.GetDuration("hub.ping_interval")
    c.Hub.MaxMessageBytes = v.GetInt64("hub.max_message_bytes")

    c.Redis.URL = v.GetString("redis.url")
    c.Redis.KeyPrefix = v.GetString("redis.key_prefix")

    c.Postgres.DSN = v.GetString("postgres.dsn")
    c.Postgres.AutoMigrate = v.GetBool("postgres.auto_migrate")

    c.Executor.URL = strings.TrimSuffix(v.GetString("executor.url"), "/")
    c.Executor.Timeout = v.GetDuration("executor.timeout")

    return c
}

// Validate reports settings that would leave the server unable to start.
func (c Config) Validate() error {
    switch c.Session.Backend {
    case BackendMemory, BackendRedis:
    case BackendPostgres:
        if c.Postgres.DSN == "" {
            return fmt.Errorf("SESSION_BACKEND=postgres requires DATABASE_URL")
        }
    default:
        return fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend)
    }
    if c.Session.TTL <= 0 {
        return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL)
    }
    if c.Session.CleanupInterval <= 0 {
        return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive, got %s", c.Session.CleanupInterval)
    }
    if c.Session.RoomIdleTimeout < 0 {
        return fmt.Errorf("ROOM_IDLE_TIMEOUT must not be negative, got %s", c.Session.RoomIdleTimeout)
    }
    if c.Server.ShutdownTimeout <= 0 {
        return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
    }
    if c.Hub.SendQueueSize <= 0 {
        return fmt.Errorf("HUB_SEND_QUEUE must be positive, got %d", c.Hub.SendQueueSize)
    }
    return nil
}

// Origins returns the websocket/CORS origin allow-list. CLIENT_URL is always allowed.
func (c Config) Origins() []string {
    out := []string{}
    if host := hostOf(c.Server.ClientURL); host != "" {
        out = append(out, host)
    }
    for _, o := range c.Server.AllowedOrigins {
        if h := hostOf(o); h != "" {
            out = append(out, h)
        } else {
            out = append(out, o)
        }
    }
    return out
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
    switch strings.ToLower(c.Server.LogLevel) {
    case "debug":
        return slog.LevelDebug
    case "warn", "warning":
        return slog.LevelWarn
    case "error":
        return slog.LevelError
    default:
        return slog.LevelInfo
    }
}

func hostOf(u string) string {
    u = strings.TrimSpace(u)
    if i := strings.Index(u, "://"); i >= 0 {
        u = u[i+3:]
    } else {
        return ""
    }
    if i := strings.IndexByte(u, '/'); i >= 0 {
        u = u[:i]
    }
    return u
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

func toString(v any) string { return fmt.Sprint(v) }
