// Package logging configures structured slog loggers shared by the binaries.
package logging

import (
	"log/slog"
	"os"
)

// level reads LOG_LEVEL, defaulting to info.
func level() slog.Level {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a JSON logger writing to stdout. Source locations are
// attached while the level includes warnings.
func NewLogger() *slog.Logger {
	logLevel := level()
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel <= slog.LevelWarn,
	}))
}

// NewTextLogger creates a human-readable logger for local runs.
func NewTextLogger() *slog.Logger {
	logLevel := level()
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel <= slog.LevelWarn,
	}))
}

// WithRun stamps every entry with the ingestion run id, so one run's output
// can be traced through interleaved logs.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	if runID == "" {
		return logger
	}
	return logger.With("run_id", runID)
}
