// Package config loads the server and interview-client configuration from
// the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config is the environment-driven configuration shared by the binaries.
type Config struct {
	Addr string

	// GeminiAPIKey authenticates both the live session and the one-shot
	// generation calls.
	GeminiAPIKey string

	// DatabaseURL selects the Postgres store. Empty runs the server on the
	// in-memory store.
	DatabaseURL string

	// Live session settings.
	LiveModel          string
	LiveEndpoint       string
	LiveConnectTimeout time.Duration

	// CORS allowlist; empty disables cross-origin access.
	CORSAllowedOrigins map[string]struct{}

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration

	LogLevel slog.Level
}

// LoadFromEnv reads RESUMASTER_* keys plus GEMINI_API_KEY and DATABASE_URL.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("RESUMASTER_ADDR", ":8080"),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LiveModel:           envOr("RESUMASTER_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-12-2025"),
		LiveEndpoint:        strings.TrimSpace(os.Getenv("RESUMASTER_LIVE_ENDPOINT")),
		LiveConnectTimeout:  envDurationOr("RESUMASTER_LIVE_CONNECT_TIMEOUT", 15*time.Second),
		CORSAllowedOrigins:  make(map[string]struct{}),
		ReadHeaderTimeout:   envDurationOr("RESUMASTER_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("RESUMASTER_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("RESUMASTER_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("RESUMASTER_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	level, err := parseLogLevel(envOr("RESUMASTER_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if strings.TrimSpace(cfg.LiveModel) == "" {
		return Config{}, fmt.Errorf("RESUMASTER_LIVE_MODEL must not be empty")
	}
	if cfg.LiveConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("RESUMASTER_LIVE_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("RESUMASTER_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("RESUMASTER_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("RESUMASTER_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("RESUMASTER_LOG_LEVEL must be one of debug|info|warn|error")
	}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
