// Package slogtools configures the process-wide slog logger.
package slogtools

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLogLevel maps a level name to a slog level. Unknown names give Info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetupGlobalLogger installs a text handler writing to w as the default
// logger. Debug level adds source locations.
func SetupGlobalLogger(level slog.Level, w io.Writer) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	slog.SetDefault(slog.New(h))
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
