package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"citizenship/pkg/requestcontext"
)

// Epoch is a fixed instant used by tests that step through cooldowns and
// refresh boundaries.
var Epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// ContextAt returns a background context pinned to t.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
