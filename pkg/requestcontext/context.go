// Package requestcontext provides transport-independent context accessors for
// values set at the edge (chat event handlers, ops HTTP middleware, CLI) and
// consumed by services.
//
// Usage in services:
//
//	now := requestcontext.Now(ctx)
//	eventID := requestcontext.EventID(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	eventIDKey     struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyEventID     = eventIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// EventID retrieves the id of the chat event or HTTP request being handled.
func EventID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyEventID).(string); ok {
		return id
	}
	return ""
}

// WithEventID injects an event id into the context.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyEventID, id)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (scheduler cycles, CLI, most tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that need to step past cooldowns
//   - Batch operations that need one consistent timestamp
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
