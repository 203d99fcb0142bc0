// Package logging builds the process logger from config.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/tbmap/tbmap/internal/config"
)

// New returns a slog.Logger writing to w. JSON output is chosen with
// log.format: json, text otherwise.
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func level(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
