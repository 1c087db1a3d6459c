package nsapi

import (
	"fmt"
	"time"

	"citizenship/pkg/platform/sentinel"
)

// TransportError covers network failures and 5xx answers. It unwraps to
// sentinel.ErrUnavailable.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nation api transport (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("nation api transport: status %d", e.Status)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{sentinel.ErrUnavailable}
	}
	return []error{sentinel.ErrUnavailable, e.Err}
}

// RateLimitError is returned when the API answers 429 or the client is still
// inside a previous Retry-After window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("nation api rate limited; retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return sentinel.ErrUnavailable }
