package identity

import (
	"context"

	"citizenship/pkg/domain"
)

// Run persists dirty users until ctx is cancelled. Failures are logged and
// counted; the in-memory mapping stays authoritative.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
			s.writeDirty(ctx)
		case done := <-s.flushes:
			s.writeDirty(ctx)
			close(done)
		}
	}
}

func (s *Store) writeDirty(ctx context.Context) {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return
	}
	users := sortedUsers(s.dirty)
	s.dirty = make(map[domain.UserID]struct{})
	s.mu.Unlock()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	for _, u := range users {
		if err := s.persist(ctx, u); err != nil {
			s.metrics.IncWritebackFailure()
			s.logger.ErrorContext(ctx, "identity write-back failed",
				"user_id", u,
				"error", err,
			)
		}
	}
}

// Flush blocks until every mutation made before the call has been written
// or has failed. Run must be running.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.flushes <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
