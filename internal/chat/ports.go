package chat

import (
	"context"
	"time"

	"citizenship/pkg/domain"
)

// Messenger sends text and collects replies.
type Messenger interface {
	Send(ctx context.Context, channel domain.ChannelID, text string) error
	// SendPaged splits text that is too long for one message.
	SendPaged(ctx context.Context, channel domain.ChannelID, text string) error
	// Confirm asks user a yes/no question. No answer before timeout is a no.
	Confirm(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration) (bool, error)
	// AwaitReply posts prompt (unless empty) and returns user's next message
	// in channel. It returns sentinel.ErrTimeout when none arrives in time.
	AwaitReply(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration) (string, error)
	// DM sends a direct message.
	DM(ctx context.Context, user domain.UserID, text string) error
	// User looks a user up by id; unknown ids return sentinel.ErrNotFound.
	User(ctx context.Context, id domain.UserID) (*User, error)
}

// Guilds is the guild and role surface. Permission refusals wrap
// sentinel.ErrForbidden.
type Guilds interface {
	Guilds(ctx context.Context) ([]Guild, error)
	Roles(ctx context.Context, guild domain.GuildID) ([]Role, error)
	// Member returns sentinel.ErrNotFound when user is not in guild.
	Member(ctx context.Context, guild domain.GuildID, user domain.UserID) (*Member, error)
	// Members lists up to limit members with ids greater than after.
	Members(ctx context.Context, guild domain.GuildID, after domain.UserID, limit int) ([]Member, error)
	SetMemberRoles(ctx context.Context, guild domain.GuildID, user domain.UserID, roles []domain.RoleID, reason string) error
}

// OperatorReporter delivers unhandled faults to the bot operators.
type OperatorReporter interface {
	ReportFault(ctx context.Context, summary string, err error, stack []byte)
}
