package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, API clients and chat
// adapters return these (optionally wrapped) so services can translate them
// into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store or on the remote side
// - ErrConflict: the write would break a uniqueness rule
// - ErrForbidden: the platform refused the action for lack of permission
// - ErrTimeout: nobody answered a prompt in time
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrTimeout     = errors.New("timed out")
	ErrUnavailable = errors.New("unavailable")
)
