// Package chat defines the chat platform surface the service depends on.
// Adapters live in subpackages (discord, memory).
package chat

import (
	"citizenship/pkg/domain"
)

type User struct {
	ID   domain.UserID
	Name string
	Bot  bool
}

// Mention renders the platform mention syntax.
func (u User) Mention() string { return "<@" + u.ID.String() + ">" }

type Role struct {
	ID       domain.RoleID
	Name     string
	Position int
	// Managed roles belong to integrations and cannot be assigned.
	Managed bool
}

type Guild struct {
	ID   domain.GuildID
	Name string
}

// Member is a user's presence in one guild.
type Member struct {
	GuildID domain.GuildID
	User    User
	RoleIDs []domain.RoleID
}

// Message is an inbound chat message.
type Message struct {
	ID        string
	ChannelID domain.ChannelID
	GuildID   domain.GuildID
	Author    User
	Content   string
}
