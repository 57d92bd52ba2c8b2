package observability

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger. JSON output is the default for
// services; text is easier on the eyes in local sessions.
func NewLogger(level slog.Level, json bool, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With(slog.String("service", "pgstash"))
}
