// Package config provides centralized configuration management, parsed
// from the environment (optionally loaded from a .env file) via struct
// tags. This is the single source of truth for process-wide settings.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerConfig holds the listening port and global connection caps.
type ServerConfig struct {
	Port          int `env:"SERVER_PORT" envDefault:"7777"`
	MaxTotalPlayers int `env:"SERVER_MAX_TOTAL_PLAYERS" envDefault:"2000"`
}

// RateLimitConfig mirrors the hard defaults in the rate limiter design.
type RateLimitConfig struct {
	ShortWindow                time.Duration `env:"RATE_SHORT_WINDOW" envDefault:"1s"`
	UnreliableLimit            int           `env:"RATE_UNRELIABLE_LIMIT" envDefault:"120"`
	ReliableLimit              int           `env:"RATE_RELIABLE_LIMIT" envDefault:"40"`
	PreAuthReliableLimit       int           `env:"RATE_PRE_AUTH_RELIABLE_LIMIT" envDefault:"5"`
	LongWindow                 time.Duration `env:"RATE_LONG_WINDOW" envDefault:"60s"`
	LongLimit                  int           `env:"RATE_LONG_LIMIT" envDefault:"600"`
	ConnectionsPerSourcePerMin float64       `env:"RATE_CONN_PER_SOURCE_PER_MIN" envDefault:"5"`
	AuthFailuresBeforeBackoff  int           `env:"RATE_AUTH_FAILURES_BEFORE_BACKOFF" envDefault:"5"`
	AuthBackoffBase            time.Duration `env:"RATE_AUTH_BACKOFF_BASE" envDefault:"30s"`
	AuthBackoffMax             time.Duration `env:"RATE_AUTH_BACKOFF_MAX" envDefault:"1h"`
	StaleAfter                 time.Duration `env:"RATE_STALE_AFTER" envDefault:"60s"`
}

// InstanceConfig controls per-match scheduler periods and limits.
type InstanceConfig struct {
	ProjectileTickMs    int64 `env:"INSTANCE_PROJECTILE_TICK_MS" envDefault:"50"`
	ItemSpawnIntervalMs int64 `env:"INSTANCE_ITEM_SPAWN_INTERVAL_MS" envDefault:"15000"`
	TimeSyncIntervalS   int64 `env:"INSTANCE_TIME_SYNC_INTERVAL_S" envDefault:"5"`
	RespawnDelayMs      int64 `env:"INSTANCE_RESPAWN_DELAY_MS" envDefault:"3000"`
	DefaultDurationMin  int   `env:"INSTANCE_DEFAULT_DURATION_MIN" envDefault:"10"`
	ClientTimeoutMs     int64 `env:"INSTANCE_CLIENT_TIMEOUT_MS" envDefault:"15000"`
	HeartbeatIntervalMs int64 `env:"INSTANCE_HEARTBEAT_INTERVAL_MS" envDefault:"2000"`
	MoveRateLimitMs     int64 `env:"INSTANCE_MOVE_RATE_LIMIT_MS" envDefault:"40"`
}

// StoreConfig controls the credential/match-history database.
type StoreConfig struct {
	Path string `env:"STORE_PATH" envDefault:"arena.db"`
}

// AdminConfig controls the operator HTTP surface.
type AdminConfig struct {
	Enabled    bool   `env:"ADMIN_ENABLED" envDefault:"true"`
	ListenAddr string `env:"ADMIN_LISTEN_ADDR" envDefault:"127.0.0.1:6060"`
}

// EventLogConfig controls the audit-trail writer.
type EventLogConfig struct {
	Path string `env:"EVENT_LOG_PATH" envDefault:"events.jsonl"`
}

// AppConfig aggregates every per-concern config struct. This is the
// single source of truth: all other packages receive their slice of it
// from main, never re-reading the environment themselves.
type AppConfig struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	Instance  InstanceConfig
	Store     StoreConfig
	Admin     AdminConfig
	EventLog  EventLogConfig
}

// Load parses environment variables (after attempting to load a .env
// file from the working directory) into a complete AppConfig.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: parse environment: %v", err)
	}
	return cfg
}
