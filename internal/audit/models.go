package audit

import (
	"time"

	"citizenship/pkg/domain"
)

// Action names a state change in the identity mapping.
type Action string

const (
	ActionClaimed     Action = "nation_claimed"
	ActionRemoved     Action = "nation_removed"
	ActionUnclaimed   Action = "nation_unclaimed"
	ActionDataDeleted Action = "user_data_deleted"
	ActionImported    Action = "nation_imported"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	UserID    domain.UserID
	// ActorID is who performed the action when different from UserID, such
	// as an admin claiming for someone else.
	ActorID domain.UserID
	Action  Action
	Nation  string
	// Previous is the nation the user held before a replacing claim.
	Previous string
	EventID  string
}
