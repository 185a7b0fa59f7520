package logger

import (
	"log/slog"
	"os"
)

// New creates a preconfigured slog.Logger. Every record carries the
// service attribute so aggregated logs stay attributable.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", "apollo"))
}
