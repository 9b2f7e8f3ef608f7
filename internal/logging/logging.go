// Package logging builds the slog loggers used across ordex.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/ordex/internal/config"
)

// New builds a logger writing to w as configured by cfg. verbose forces
// the debug level.
func New(w io.Writer, cfg config.LogConfig, verbose bool) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case config.FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case config.FormatText, "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}

// ParseLevel converts a level name (debug, info, warn, error) to a
// slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
