package feeds

import (
	"context"
	"errors"
	"fmt"

	"citizenship/internal/feeds/sheets"
	"citizenship/internal/nsapi"
	"citizenship/pkg/platform/sentinel"
)

// ErrorCategory is the normalized feed failure taxonomy.
type ErrorCategory string

const (
	// ErrorTransport covers network failures and 5xx answers.
	ErrorTransport ErrorCategory = "transport"

	// ErrorProvider is the spreadsheet provider's error envelope.
	ErrorProvider ErrorCategory = "provider"

	// ErrorBadData means the answer parsed but made no sense.
	ErrorBadData ErrorCategory = "bad_data"

	ErrorNotFound    ErrorCategory = "not_found"
	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorInternal    ErrorCategory = "internal"
)

// FeedError wraps feed failures with a category and a retry verdict.
type FeedError struct {
	Category   ErrorCategory
	Feed       string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *FeedError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("feed %s [%s]: %s: %v", e.Feed, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("feed %s [%s]: %s", e.Feed, e.Category, e.Message)
}

func (e *FeedError) Unwrap() error {
	return e.Underlying
}

// NewFeedError builds a FeedError. Transport, provider and rate-limit
// failures are retryable.
func NewFeedError(category ErrorCategory, feed, message string, underlying error) *FeedError {
	retryable := category == ErrorTransport ||
		category == ErrorProvider ||
		category == ErrorRateLimited

	return &FeedError{
		Category:   category,
		Feed:       feed,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// Category extracts the error category from an error.
func Category(err error) ErrorCategory {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ErrorInternal
}

// classify maps client errors onto the feed taxonomy. FeedErrors and
// context errors pass through unchanged.
func classify(feed string, err error) error {
	var (
		fe       *FeedError
		apiErr   *sheets.APIError
		limitErr *nsapi.RateLimitError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &fe):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &apiErr):
		return NewFeedError(ErrorProvider, feed, apiErr.Message, err)
	case errors.As(err, &limitErr):
		return NewFeedError(ErrorRateLimited, feed, "rate limited", err)
	case errors.Is(err, sentinel.ErrNotFound):
		return NewFeedError(ErrorNotFound, feed, "source not found", err)
	case errors.Is(err, sentinel.ErrUnavailable):
		return NewFeedError(ErrorTransport, feed, "source unavailable", err)
	default:
		return NewFeedError(ErrorInternal, feed, "unexpected failure", err)
	}
}
