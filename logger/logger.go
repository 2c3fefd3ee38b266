// Package logger configures the process-wide structured logger used by
// every component in studioforge. It wraps log/slog the way the rest of
// the stack expects: one logger built at startup from a level string and
// passed as an argument to the components that log, never constructed
// ad hoc per package.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// ParseLevel converts a case-insensitive level name to a slog.Level.
// Unknown values fall back to Info rather than erroring, since log level
// is rarely worth failing startup over.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Init builds the default logger writing to w at the given level and
// installs it as both the package default and slog's global default, so
// third-party code that logs via slog.Info etc. lands in the same stream.
func Init(level slog.Level, w *os.File) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
				return slog.String(slog.LevelKey, "WARN")
			}
			return a
		},
	}
	defaultLogger = slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// Get returns the process default logger, lazily initializing it at Info
// level to stderr if Init was never called (useful in tests).
func Get() *slog.Logger {
	if defaultLogger == nil {
		return Init(slog.LevelInfo, os.Stderr)
	}
	return defaultLogger
}

// WithSession returns a logger scoped to a session, so every log line an
// agent or adapter emits during a run can be grepped by session_id.
func WithSession(ctx context.Context, sessionID string) *slog.Logger {
	return Get().With("session_id", sessionID)
}
