package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"citizenship/pkg/domain"
	"citizenship/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. With a queue
// attached, Emit hands events to a Worker instead of writing inline.
type Publisher struct {
	store  Store
	queue  chan<- Event
	logger *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithQueue makes Emit asynchronous. A full queue falls back to an inline
// write.
func WithQueue(queue chan<- Event) Option {
	return func(p *Publisher) { p.queue = queue }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps the event with an id, the request clock and the request's
// event id, then records it.
func (p *Publisher) Emit(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.EventID == "" {
		e.EventID = requestcontext.EventID(ctx)
	}
	if p.queue != nil {
		select {
		case p.queue <- e:
			return nil
		default:
			p.logger.WarnContext(ctx, "audit queue full, writing inline", "action", e.Action)
		}
	}
	return p.store.Append(ctx, e)
}

func (p *Publisher) List(ctx context.Context, userID domain.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Forget drops the user's history.
func (p *Publisher) Forget(ctx context.Context, userID domain.UserID) error {
	return p.store.DeleteUser(ctx, userID)
}
