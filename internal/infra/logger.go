package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical is used for correlation faults and unknown venue failures,
// conditions that may leave orders stuck until reconciliation.
const LevelCritical = slog.Level(12)

// NewLogger creates a JSON logger writing to stdout and a rotating file.
func NewLogger(cfg *Config) *slog.Logger {
	if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
		// Fallback to stderr if directory creation fails
		return slog.New(NewHandler(os.Stderr, ParseLevel(cfg.Logging.Level)))
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logging.Dir, cfg.Logging.File),
		MaxSize:    orDefault(cfg.Logging.MaxSizeMB, 10), // Megabytes
		MaxBackups: orDefault(cfg.Logging.MaxBackups, 3),
		MaxAge:     orDefault(cfg.Logging.MaxAgeDays, 28), // Days
		Compress:   cfg.Logging.Compress,
	}

	writer := io.MultiWriter(os.Stdout, fileLogger)
	return slog.New(NewHandler(writer, ParseLevel(cfg.Logging.Level)))
}

// NewHandler returns a JSON handler that renders LevelCritical as "CRITICAL".
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
