// Package logging provides structured logging using Go's slog package.
package logging

import (
	"log/slog"
	"os"
	"time"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Initialize with a default logger (text format, Info level)
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a
// Level. Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// InitLogger initializes the global logger with the specified level and format.
// Log output goes to stderr so it never mixes with the presented tree on stdout.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// ManifestFetch logs a manifest fetch with common fields.
func ManifestFetch(url, format string, entries int, duration time.Duration, args ...any) {
	allArgs := []any{
		"url", url,
		"format", format,
		"entries", entries,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("manifest_fetch", allArgs...)
}

// Download logs an archive download with common fields.
func Download(url string, bytes int64, duration time.Duration, args ...any) {
	allArgs := []any{
		"url", url,
		"bytes", bytes,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("download", allArgs...)
}

// Materialized logs a completed materialization.
func Materialized(label, dest string, args ...any) {
	allArgs := []any{
		"label", label,
		"dest", dest,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("materialized", allArgs...)
}

// Submission logs a completed submission with common fields.
func Submission(url string, bytes int64, resultsURL string, args ...any) {
	allArgs := []any{
		"url", url,
		"bytes", bytes,
		"results_url", resultsURL,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("submission", allArgs...)
}

// PipelineError logs a pipeline failure.
func PipelineError(pipeline, step string, err error, args ...any) {
	allArgs := []any{
		"pipeline", pipeline,
		"step", step,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Error("pipeline_error", allArgs...)
}
