package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a text logger for the given level name.
// "silent" and "off" discard everything; unknown names fall back to info.
func New(level string, w io.Writer) *slog.Logger {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "silent" || lvl == "off" {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(lvl)}))
}

// ParseLevel maps a level name to a slog level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
