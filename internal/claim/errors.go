package claim

import (
	"fmt"
	"time"

	"citizenship/pkg/domain"
	dErrors "citizenship/pkg/domain-errors"
)

var (
	ErrInvalidNation           = dErrors.New(dErrors.CodeInvalidInput, "that doesn't look like a nation name")
	ErrNoSuchUser              = dErrors.New(dErrors.CodeNotFound, "no user has claimed that nation")
	ErrNationNotFound          = dErrors.New(dErrors.CodeNotFound, "nation does not exist")
	ErrVerificationUnavailable = dErrors.New(dErrors.CodeUnavailable, "nation api unavailable")
	ErrNoNation                = dErrors.New(dErrors.CodeNotFound, "no nation associated with the account")
	ErrNotInData               = dErrors.New(dErrors.CodeNotFound, "not in data")
)

// CooldownError rejects a self-service claim made too soon after the last.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("claim cooldown: %s remaining", e.Remaining)
}

func (e *CooldownError) Code() dErrors.Code { return dErrors.CodeCooldown }

// ConflictError rejects a self-service claim on a nation someone else holds.
type ConflictError struct {
	Owner domain.UserID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("nation already claimed by %s", e.Owner)
}

func (e *ConflictError) Code() dErrors.Code { return dErrors.CodeConflict }
