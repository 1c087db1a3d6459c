package claim

import (
	"context"
	"time"

	"citizenship/internal/audit"
	"citizenship/internal/chat"
	"citizenship/internal/identity"
	"citizenship/internal/nation"
	"citizenship/internal/nsapi"
	"citizenship/internal/roles"
	"citizenship/pkg/domain"
)

// Identities is the identity store surface the workflow mutates.
type Identities interface {
	Get(user domain.UserID) (nation.Key, bool)
	Owner(key nation.Key) (domain.UserID, bool)
	Bind(user domain.UserID, key nation.Key, evict bool) (identity.Binding, bool)
	Remove(user domain.UserID) (nation.Key, error)
	RemoveNation(key nation.Key) (domain.UserID, error)
}

// Verifier confirms a nation exists and reports where it lives.
type Verifier interface {
	Nation(ctx context.Context, key nation.Key) (*nsapi.Nation, error)
}

// Reconciler pushes role changes after a claim changes.
type Reconciler interface {
	User(ctx context.Context, user domain.UserID) error
	Member(ctx context.Context, member chat.Member) (roles.Plan, error)
	Strip(ctx context.Context, user domain.UserID, reason string) error
}

// Prompter asks users questions in a channel.
type Prompter interface {
	Send(ctx context.Context, channel domain.ChannelID, text string) error
	Confirm(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration) (bool, error)
	AwaitReply(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration) (string, error)
}

// AuditPublisher records claim history.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, userID domain.UserID) ([]audit.Event, error)
	Forget(ctx context.Context, userID domain.UserID) error
}

// EnabledGuilds answers whether autorole is on for a guild.
type EnabledGuilds interface {
	IsEnabled(guild domain.GuildID) bool
}
