// Package logging provides the structured logger used across Tollgate.
// It wraps log/slog with level/format parsing and context field extraction
// so request id and tenant ride along on every request-scoped log line.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json", "text").
	Format string

	// AddSource includes file and line number in logs.
	AddSource bool

	// Writer is the output writer (defaults to os.Stdout).
	Writer io.Writer
}

// Logger provides structured logging with context field extraction.
type Logger struct {
	slog *slog.Logger
}

// New creates a new Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text", "TEXT":
		handler = slog.NewTextHandler(writer, opts)
	case "json", "JSON", "":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	return &Logger{slog: slog.New(handler)}, nil
}

// Slog returns the underlying slog.Logger for packages that take one
// directly.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// InfoContext logs an info message with fields extracted from ctx.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, append(extractContextFields(ctx), args...)...)
}

// WarnContext logs a warning message with fields extracted from ctx.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, append(extractContextFields(ctx), args...)...)
}

// ErrorContext logs an error message with fields extracted from ctx.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, append(extractContextFields(ctx), args...)...)
}

// With creates a new logger with additional fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// parseLevel parses a log level string into slog.Level.
func parseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}
