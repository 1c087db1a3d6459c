package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenship/internal/chat"
	"citizenship/pkg/domain"
	"citizenship/pkg/platform/sentinel"
	"citizenship/pkg/testutil"
)

type edit struct {
	guild, user string
	roles       []string
}

type fakeSession struct {
	mu      sync.Mutex
	sent    []string
	guilds  []*discordgo.UserGuild
	members []*discordgo.Member
	edits   []edit
	editErr error
	perms   int64
	history []*discordgo.Message
	calls   map[string]int
}

func newFakeSession() *fakeSession {
	return &fakeSession{calls: make(map[string]int)}
}

func (f *fakeSession) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeSession) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, channelID+":"+content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) ChannelMessages(_ string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return f.history[:min(limit, len(f.history))], nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	if userID == "404" {
		return nil, restError(http.StatusNotFound)
	}
	return &discordgo.User{ID: userID, Username: "user" + userID}, nil
}

func (f *fakeSession) UserGuilds(limit int, _, afterID string, _ ...discordgo.RequestOption) ([]*discordgo.UserGuild, error) {
	f.count("guilds")
	start := 0
	for i, g := range f.guilds {
		if g.ID == afterID {
			start = i + 1
		}
	}
	return f.guilds[start:min(start+limit, len(f.guilds))], nil
}

func (f *fakeSession) UserChannelPermissions(_, _ string, _ ...discordgo.RequestOption) (int64, error) {
	return f.perms, nil
}

func (f *fakeSession) GuildRoles(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return []*discordgo.Role{
		{ID: "10", Name: "Residents", Position: 2},
		{ID: "11", Name: "Booster", Managed: true},
	}, nil
}

func (f *fakeSession) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	for _, m := range f.members {
		if m.User.ID == userID {
			return m, nil
		}
	}
	return nil, restError(http.StatusNotFound)
}

func (f *fakeSession) GuildMembers(_ string, _ string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	return f.members[:min(limit, len(f.members))], nil
}

func (f *fakeSession) GuildMemberEdit(guildID, userID string, data *discordgo.GuildMemberParams, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{guild: guildID, user: userID, roles: *data.Roles})
	return &discordgo.Member{}, nil
}

func restError(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status, Status: http.StatusText(status)}}
}

func newAdapter(t *testing.T, s *fakeSession, opts ...Option) *Adapter {
	t.Helper()
	a, err := New(s, append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)...)
	require.NoError(t, err)
	return a
}

func TestNewRequiresSession(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestSetMemberRoles(t *testing.T) {
	s := newFakeSession()
	a := newAdapter(t, s)

	err := a.SetMemberRoles(context.Background(), "1", "2", []domain.RoleID{"10", "12"}, "Set nation to Testlandia")
	require.NoError(t, err)
	require.Len(t, s.edits, 1)
	assert.Equal(t, []string{"10", "12"}, s.edits[0].roles)

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, sentinel.ErrForbidden},
		{http.StatusNotFound, sentinel.ErrNotFound},
		{http.StatusBadGateway, sentinel.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			s.editErr = restError(tt.status)
			err := a.SetMemberRoles(context.Background(), "1", "2", nil, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	s.editErr = errors.New("connection reset")
	assert.ErrorIs(t, a.SetMemberRoles(context.Background(), "1", "2", nil, ""), sentinel.ErrUnavailable)
}

func TestGuildsPaginates(t *testing.T) {
	s := newFakeSession()
	for i := 1; i <= guildPage+5; i++ {
		s.guilds = append(s.guilds, &discordgo.UserGuild{ID: fmt.Sprint(i), Name: fmt.Sprint("guild ", i)})
	}
	a := newAdapter(t, s)

	guilds, err := a.Guilds(context.Background())
	require.NoError(t, err)
	assert.Len(t, guilds, guildPage+5)
	assert.Equal(t, 2, s.calls["guilds"])
}

func TestMembersAndRoles(t *testing.T) {
	s := newFakeSession()
	s.members = []*discordgo.Member{
		{User: &discordgo.User{ID: "5", Username: "five"}, Roles: []string{"10"}},
		{User: &discordgo.User{ID: "6", Bot: true}},
	}
	a := newAdapter(t, s)
	ctx := context.Background()

	members, err := a.Members(ctx, "1", "", 1000)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, chat.Member{GuildID: "1", User: chat.User{ID: "5", Name: "five"}, RoleIDs: []domain.RoleID{"10"}}, members[0])
	assert.True(t, members[1].User.Bot)

	_, err = a.Member(ctx, "1", "404")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	roles, err := a.Roles(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, chat.Role{ID: "10", Name: "Residents", Position: 2}, roles[0])
	assert.True(t, roles[1].Managed)

	_, err = a.User(ctx, "404")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConfirm(t *testing.T) {
	s := newFakeSession()
	a := newAdapter(t, s)
	msg := func(text string) chat.Message {
		return chat.Message{ChannelID: "9", Author: chat.User{ID: "42"}, Content: text}
	}

	t.Run("yes after noise", func(t *testing.T) {
		done := make(chan bool)
		go func() {
			yes, err := a.Confirm(context.Background(), "9", "42", "Are you sure?", time.Second)
			assert.NoError(t, err)
			done <- yes
		}()
		require.Eventually(t, func() bool { return len(s.Sent()) == 1 }, time.Second, time.Millisecond)

		assert.False(t, a.Dispatch(msg("maybe")), "non answers pass through")
		assert.False(t, a.Dispatch(chat.Message{ChannelID: "9", Author: chat.User{ID: "7"}, Content: "yes"}), "other users are ignored")
		assert.True(t, a.Dispatch(msg("Y")))
		assert.True(t, <-done)
		assert.False(t, a.Dispatch(msg("yes")), "waiter is gone")
	})

	t.Run("timeout is a no", func(t *testing.T) {
		yes, err := a.Confirm(context.Background(), "9", "42", "", 5*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, yes)
	})
}

func TestAwaitReply(t *testing.T) {
	s := newFakeSession()
	a := newAdapter(t, s)

	_, err := a.AwaitReply(context.Background(), "9", "42", "", 5*time.Millisecond)
	assert.ErrorIs(t, err, sentinel.ErrTimeout)
	assert.Empty(t, s.Sent(), "empty prompts are not sent")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.AwaitReply(ctx, "9", "42", "", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReportFault(t *testing.T) {
	s := newFakeSession()
	a := newAdapter(t, s, WithOperators("1", "2"))

	a.ReportFault(context.Background(), "refresh task crashed", errors.New("boom"), []byte("goroutine 1 [running]"))

	sent := s.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "dm-1:refresh task crashed")
	assert.Contains(t, sent[0], "boom")
	assert.Contains(t, sent[1], "goroutine 1 [running]")
}

func TestHistory(t *testing.T) {
	s := newFakeSession()
	s.history = []*discordgo.Message{
		{ID: "3", ChannelID: "9", Content: "hello", Author: &discordgo.User{ID: "42"}},
	}
	a := newAdapter(t, s)

	msgs, err := a.History(context.Background(), "9", "", 50)
	require.NoError(t, err)
	assert.Equal(t, []chat.Message{{ID: "3", ChannelID: "9", Author: chat.User{ID: "42"}, Content: "hello"}}, msgs)
}
