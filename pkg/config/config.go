// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHTTPAddr is the listen address when HTTP_ADDR is unset.
	DefaultHTTPAddr = ":8080"

	// DefaultSearchEndpoint is the Google Custom Search JSON API endpoint.
	DefaultSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

	// DefaultGeminiEndpoint is the generative-language API base URL.
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
)

// Settings holds all environment-derived runtime configuration. It is built
// once at startup and passed explicitly; nothing reads the environment after
// Load returns.
type Settings struct {
	// DatabaseURL is the connection string. postgres:// URLs use the pgx
	// driver; sqlite:// URLs (or bare file paths) use the embedded SQLite
	// driver and are intended for development and tests.
	DatabaseURL string

	HTTPAddr string

	GoogleSearchAPIKey   string
	GoogleSearchCX       string
	GoogleSearchEndpoint string

	GeminiAPIKey   string
	GeminiEndpoint string

	// InternalTraceToken guards the trace endpoint. Empty means the endpoint
	// is open; when set, the X-Internal-Token header must match verbatim.
	InternalTraceToken string

	LogLevel slog.Level

	Queue     *QueueConfig
	Retention *RetentionConfig
}

// Load reads settings from the environment. DATABASE_URL is the only
// required variable: missing search or oracle credentials degrade the
// pipeline per-call instead of preventing startup.
func Load() (*Settings, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	queue := DefaultQueueConfig()
	queue.WorkerCount = getEnvInt("WORKER_COUNT", queue.WorkerCount)

	retention := DefaultRetentionConfig()
	if days := getEnvInt("SESSION_RETENTION_DAYS", 0); days > 0 {
		retention.SessionRetention = time.Duration(days) * 24 * time.Hour
	}

	return &Settings{
		DatabaseURL:          dbURL,
		HTTPAddr:             getEnv("HTTP_ADDR", DefaultHTTPAddr),
		GoogleSearchAPIKey:   os.Getenv("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchCX:       os.Getenv("GOOGLE_SEARCH_CX"),
		GoogleSearchEndpoint: getEnv("GOOGLE_SEARCH_ENDPOINT", DefaultSearchEndpoint),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiEndpoint:       getEnv("GEMINI_API_ENDPOINT", DefaultGeminiEndpoint),
		InternalTraceToken:   os.Getenv("INTERNAL_TRACE_TOKEN"),
		LogLevel:             parseLogLevel(getEnv("LOG_LEVEL", "info")),
		Queue:                queue,
		Retention:            retention,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		slog.Warn("Ignoring invalid integer environment variable", "key", key, "value", raw)
		return defaultValue
	}
	return n
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
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
