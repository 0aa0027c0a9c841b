// Package logging wires slog and the std log package to stderr and, when
// configured, a size-rotated log file.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"airingcal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default slog logger described by cfg. Output from the
// std log package (the bracket-prefixed "[calendar] ..." lines) is routed
// through the same handler. The returned closer releases the log file.
func Setup(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotator)
		closer = rotator
	}

	logger := New(out, cfg)
	slog.SetDefault(logger)
	log.SetFlags(0)
	return logger, closer
}

// New builds a logger writing to w without touching the process defaults.
func New(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level; unknown names mean info.
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
