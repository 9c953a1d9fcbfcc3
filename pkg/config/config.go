// Package config loads process configuration from the environment, with an
// optional .env file for local development — the same pattern the rest of
// the corpus uses rather than a flags-only or file-only scheme.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server and CLI commands need: where the
// SQLite file lives, what address to listen on/dial, and how long to wait
// on slow operations.
type Config struct {
	// SQLitePath is the database file path (§6.4). Created on open if
	// absent, never migrated.
	SQLitePath string

	// ListenAddr is the TCP address the server binds (§6.3: default port
	// 8081).
	ListenAddr string

	// ServerAddr is the address the CLI's network-backed commands dial.
	ServerAddr string

	// RequestTimeout bounds how long a CLI command waits on a future
	// before giving up.
	RequestTimeout time.Duration

	// LogLevel controls the root slog handler's minimum level.
	LogLevel string
}

// Load reads configuration from the environment, first loading envPath (if
// non-empty) to seed process environment variables that aren't already
// set. A missing .env file is not an error — only a warning — since
// production deployments set real environment variables directly.
func Load(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: could not load %s: %v (continuing with process environment)\n", envPath, err)
		}
	}

	timeout, err := parseDurationOrDefault("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		SQLitePath:     getEnvOrDefault("HOTELSYNC_DB_PATH", "hotelsync.db"),
		ListenAddr:     getEnvOrDefault("HOTELSYNC_LISTEN_ADDR", ":8081"),
		ServerAddr:     getEnvOrDefault("HOTELSYNC_SERVER_ADDR", "127.0.0.1:8081"),
		RequestTimeout: timeout,
		LogLevel:       getEnvOrDefault("HOTELSYNC_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("HOTELSYNC_DB_PATH must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("HOTELSYNC_LISTEN_ADDR must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("HOTELSYNC_LOG_LEVEL must be one of debug|info|warn|error, got %q", c.LogLevel)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDurationOrDefault(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// ParseLogLevel converts LogLevel into an slog.Level for building the root
// handler.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
