package identity

import dErrors "citizenship/pkg/domain-errors"

var (
	ErrAlreadyInitialized = dErrors.New(dErrors.CodeAlreadyInitialized, "identity store already loaded")
	ErrNotFound           = dErrors.New(dErrors.CodeNotFound, "no nation claimed")
)
