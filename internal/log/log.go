package log

import (
	"log/slog"
	"os"
)

// New builds the daemon's JSON logger. verbose switches debug level on.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	return slog.New(handler)
}
