package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output so log aggregation can index
// the structured attributes every module attaches.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
