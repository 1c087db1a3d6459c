package discord

import (
	"github.com/bwmarrin/discordgo"

	"citizenship/internal/chat"
	"citizenship/pkg/domain"
)

// Session is the part of *discordgo.Session the adapter calls.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserGuilds(limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberEdit(guildID, userID string, data *discordgo.GuildMemberParams, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Handlers registers gateway event callbacks.
type Handlers interface {
	AddHandler(handler interface{}) func()
}

var (
	_ Session  = (*discordgo.Session)(nil)
	_ Handlers = (*discordgo.Session)(nil)
)

func toUser(u *discordgo.User) chat.User {
	if u == nil {
		return chat.User{}
	}
	return chat.User{ID: domain.UserID(u.ID), Name: u.Username, Bot: u.Bot}
}

func toMember(guild string, m *discordgo.Member) chat.Member {
	if m.GuildID != "" {
		guild = m.GuildID
	}
	out := chat.Member{
		GuildID: domain.GuildID(guild),
		User:    toUser(m.User),
		RoleIDs: make([]domain.RoleID, len(m.Roles)),
	}
	for i, r := range m.Roles {
		out.RoleIDs[i] = domain.RoleID(r)
	}
	return out
}

func toMessage(m *discordgo.Message) chat.Message {
	return chat.Message{
		ID:        m.ID,
		ChannelID: domain.ChannelID(m.ChannelID),
		GuildID:   domain.GuildID(m.GuildID),
		Author:    toUser(m.Author),
		Content:   m.Content,
	}
}
