// Package log configures the process-wide slog default.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on stdout tagged with the component name
// and returns the logger it set as default.
func Setup(component string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: LevelFromEnv(),
	})
	logger := slog.New(handler).With("component", component)
	slog.SetDefault(logger)
	return logger
}

// LevelFromEnv reads LOG_LEVEL (debug|info|warn|error), defaulting to info.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
