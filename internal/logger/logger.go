// Package logger provides a simple wrapper around slog for structured logging.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var level = new(slog.LevelVar)

// current is swapped while background runs may still be logging.
var current atomic.Pointer[slog.Logger]

func init() {
	SetOutput(os.Stderr)
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	return current.Load()
}

// SetLogger replaces the global logger and returns the previous one.
func SetLogger(l *slog.Logger) *slog.Logger {
	return current.Swap(l)
}

// SetOutput redirects the global logger, keeping the current level.
func SetOutput(w io.Writer) {
	current.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
