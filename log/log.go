// Package log provides structured logging for the coordinator. It
// wraps Go's log/slog with conveniences such as per-module child
// loggers and rotated file output.
package log

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig controls log-file rotation when logging to disk
// (engine and adapter processes run long enough that unrotated JSON
// logs would grow unbounded).
type RotationConfig struct {
	// Path is the log file path. If empty, NewWithRotation behaves
	// like New and writes to stderr.
	Path string
	// MaxSizeMB is the size in megabytes a log file reaches before
	// rotation.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to retain.
	MaxBackups int
	// MaxAgeDays is the number of days to retain rotated files.
	MaxAgeDays int
}

// Logger wraps slog.Logger with per-module child loggers.
type Logger struct {
	inner *slog.Logger
}

// defaultLogger is the process-wide logger used by the package-level
// convenience functions.
var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler. This
// is useful for testing or for writing to a custom destination.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// NewWithFormatter creates a Logger that writes to stderr at the given
// level, rendering each record through formatter (TextFormatter,
// ColorFormatter, or any other LogFormatter) instead of slog's own
// JSON encoding. Intended for human-facing console output; rotated
// file output always uses NewWithRotation's JSON encoding instead,
// since rotated logs are for machine parsing.
func NewWithFormatter(level slog.Level, formatter LogFormatter) *Logger {
	return NewWithHandler(newFormatterHandler(os.Stderr, level, formatter))
}

// NewWithRotation creates a Logger that writes JSON to cfg.Path,
// rotated via lumberjack, at the given level. If cfg.Path is empty it
// falls back to New(level).
func NewWithRotation(level slog.Level, cfg RotationConfig) *Logger {
	if cfg.Path == "" {
		return New(level)
	}
	writer := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	h := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// NewFromConfig builds a Logger the way cmd/nexus and cmd/nexus-adapter
// both want it: rotated JSON to path if non-empty, otherwise a console
// logger at format ("json", "text", "color", or "" which behaves like
// "json"). Unknown formats fall back to JSON rather than erroring,
// since config validation is expected to have already rejected them.
func NewFromConfig(level slog.Level, path string, format string) *Logger {
	if path != "" {
		return NewWithRotation(level, RotationConfig{Path: path, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28})
	}
	switch format {
	case "text":
		return NewWithFormatter(level, &TextFormatter{})
	case "color":
		return NewWithFormatter(level, &ColorFormatter{})
	default:
		return New(level)
	}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger with an additional "module" attribute. This
// is the primary way subsystems (engine, adapter, api, ...) obtain their own
// contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// ---------------------------------------------------------------------------
// Package-level convenience functions -- delegate to defaultLogger.
// ---------------------------------------------------------------------------

// Debug logs at LevelDebug using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs at LevelInfo using the default logger.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs at LevelWarn using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs at LevelError using the default logger.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
