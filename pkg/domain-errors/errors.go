// Package domainerrors carries coded domain failures across layers.
//
// Services return these so adapters (chat replies, the ops HTTP surface,
// metrics labels) can react to the kind of failure without string matching.
// Infrastructure facts stay in pkg/platform/sentinel and are translated at the
// service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeCooldown           Code = "cooldown"
	CodeForbidden          Code = "forbidden"
	CodeUnavailable        Code = "unavailable"
	CodeExternal           Code = "external_store_error"
	CodeAlreadyInitialized Code = "already_initialized"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Coder is implemented by errors that carry a domain code. Richer domain
// error types (cooldowns, conflicts) implement it so HasCode sees them too.
type Coder interface {
	Code() Code
}

// Error is the default coded error.
type Error struct {
	code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the classification.
func (e *Error) Code() Code { return e.code }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Is re-exports errors.Is so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
