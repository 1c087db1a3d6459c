package domain

import (
	"strconv"

	dErrors "citizenship/pkg/domain-errors"
)

// Typed chat-platform identifiers. All are snowflakes: positive 64-bit
// integers carried as decimal strings. Distinct types keep a role id from
// being passed where a user id is expected.
type (
	UserID    string
	GuildID   string
	RoleID    string
	ChannelID string
)

func (id UserID) String() string    { return string(id) }
func (id GuildID) String() string   { return string(id) }
func (id RoleID) String() string    { return string(id) }
func (id ChannelID) String() string { return string(id) }

func (id UserID) IsNil() bool  { return id == "" }
func (id GuildID) IsNil() bool { return id == "" }

// Longest decimal rendering of a uint64.
const maxSnowflakeLen = 20

func parseSnowflake(kind, s string) (string, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxSnowflakeLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return strconv.FormatUint(n, 10), nil
}

// ParseUserID validates a user snowflake from external input (legacy exports,
// command arguments, HTTP paths).
func ParseUserID(s string) (UserID, error) {
	v, err := parseSnowflake("user_id", s)
	return UserID(v), err
}

func ParseGuildID(s string) (GuildID, error) {
	v, err := parseSnowflake("guild_id", s)
	return GuildID(v), err
}

func ParseRoleID(s string) (RoleID, error) {
	v, err := parseSnowflake("role_id", s)
	return RoleID(v), err
}

func ParseChannelID(s string) (ChannelID, error) {
	v, err := parseSnowflake("channel_id", s)
	return ChannelID(v), err
}
