package config

import (
    "log/slog"
    "testing"
    "time"
)

func TestLoadDefaults(t *testing.T) {
    // Clear relevant envs
    for _, k := range []string{"PORT", "LOG_LEVEL", "CLIENT_URL", "SESSION_BACKEND", "SESSION_TTL", "HUB_SEND_QUEUE", "EXECUTOR_TIMEOUT"} {
        t.Setenv(k, "")
    }

    c := Load()

    if c.Server.Port != "5000" {
        t.Fatalf("expected default port 5000, got %q", c.Server.Port)
    }
    if c.Server.LogLevel != "info" {
        t.Fatalf("expected default log level info, got %q", c.Server.LogLevel)
    }
    if c.Server.ClientURL != "http://localhost:3000" {
        t.Fatalf("expected default client url, got %q", c.Server.ClientURL)
    }
    if c.Session.Backend != BackendMemory {
        t.Fatalf("expected memory backend, got %q", c.Session.Backend)
    }
    if c.Session.TTL != 24*time.Hour {
        t.Fatalf("expected 24h ttl, got %s", c.Session.TTL)
    }
    if c.Hub.SendQueueSize != 256 {
        t.Fatalf("expected send queue 256, got %d", c.Hub.SendQueueSize)
    }
    if c.Executor.Timeout != 10*time.Second {
        t.Fatalf("expected executor timeout 10s, got %s", c.Executor.Timeout)
    }
    if err := c.Validate(); err != nil {
        t.Fatalf("defaults should validate: %v", err)
    }
}

func TestLoadFromEnv(t *testing.T) {
    t.Setenv("PORT", "7000")
    t.Setenv("CLIENT_URL", "https://interview.example.com/")
    t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, b.example.com:8080")
    t.Setenv("SESSION_TTL", "2h")
    t.Setenv("SESSION_BACKEND", "Postgres")
    t.Setenv("DATABASE_URL", "")

    c := Load()

    if c.Server.Port != "7000" {
        t.Fatalf("expected port 7000, got %q", c.Server.Port)
    }
    if c.Server.ClientURL != "https://interview.example.com" {
        t.Fatalf("expected trailing slash trimmed, got %q", c.Server.ClientURL)
    }
    if c.Session.TTL != 2*time.Hour {
        t.Fatalf("expected 2h ttl, got %s", c.Session.TTL)
    }
    if c.Session.Backend != BackendPostgres {
        t.Fatalf("expected postgres backend, got %q", c.Session.Backend)
    }
    if err := c.Validate(); err == nil {
        t.Fatalf("postgres without DATABASE_URL should not validate")
    }
    got := c.Origins()
    want := []string{"interview.example.com", "a.example.com", "b.example.com:8080"}
    if len(got) != len(want) {
        t.Fatalf("origins: got %v want %v", got, want)
    }
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("origins[%d]: got %q want %q", i, got[i], want[i])
        }
    }
}

func TestSlogLevel(t *testing.T) {
    cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "bogus": slog.LevelInfo}
    for in, want := range cases {
        var c Config
        c.Server.LogLevel = in
        if got := c.SlogLevel(); got != want {
            t.Fatalf("%q: got %v want %v", in, got, want)
        }
    }
}

func TestValidateRejectsBadDurations(t *testing.T) {
    cases := map[string]string{
        "SESSION_CLEANUP_INTERVAL": "0s",
        "ROOM_IDLE_TIMEOUT":        "-1m",
        "SHUTDOWN_TIMEOUT":         "0s",
    }
    for key, val := range cases {
        t.Run(key, func(t *testing.T) {
            t.Setenv("SESSION_BACKEND", "memory")
            t.Setenv(key, val)
            c := Load()
            if err := c.Validate(); err == nil {
                t.Fatalf("%s=%s should not validate", key, val)
            }
        })
    }

    t.Setenv("SESSION_BACKEND", "memory")
    t.Setenv("SESSION_CLEANUP_INTERVAL", "-5s")
    c := Load()
    if err := c.Validate(); err == nil {
        t.Fatalf("negative cleanup interval should not validate")
    }

    t.Setenv("SESSION_CLEANUP_INTERVAL", "30s")
    t.Setenv("ROOM_IDLE_TIMEOUT", "0s")
    c = Load()
    if err := c.Validate(); err != nil {
        t.Fatalf("zero room idle timeout evicts immediately and is valid: %v", err)
    }
}
