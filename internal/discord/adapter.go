// Package discord adapts discordgo to the chat ports and routes bot
// commands and join events to the claim workflow.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"citizenship/internal/chat"
	"citizenship/pkg/domain"
	"citizenship/pkg/platform/sentinel"
)

const guildPage = 100

// Adapter implements chat.Messenger, chat.Guilds and chat.OperatorReporter
// over a Discord session. Replies awaited by Confirm and AwaitReply are fed
// in through Dispatch.
type Adapter struct {
	session   Session
	logger    *slog.Logger
	operators []domain.UserID

	mu      sync.Mutex
	waiters map[waitKey][]*waiter
}

type waitKey struct {
	channel domain.ChannelID
	user    domain.UserID
}

type waiter struct {
	accept func(string) bool
	reply  chan string
}

type Option func(*Adapter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithOperators sets who receives fault reports.
func WithOperators(ids ...domain.UserID) Option {
	return func(a *Adapter) { a.operators = append(a.operators, ids...) }
}

func New(session Session, opts ...Option) (*Adapter, error) {
	if session == nil {
		return nil, fmt.Errorf("discord session is required")
	}
	a := &Adapter{
		session: session,
		logger:  slog.Default(),
		waiters: make(map[waitKey][]*waiter),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

var (
	_ chat.Messenger        = (*Adapter)(nil)
	_ chat.Guilds           = (*Adapter)(nil)
	_ chat.OperatorReporter = (*Adapter)(nil)
)

// =============================================================================
// chat.Messenger
// =============================================================================

func (a *Adapter) Send(ctx context.Context, channel domain.ChannelID, text string) error {
	_, err := a.session.ChannelMessageSend(channel.String(), text, discordgo.WithContext(ctx))
	return translate("send message", err)
}

func (a *Adapter) SendPaged(ctx context.Context, channel domain.ChannelID, text string) error {
	for _, page := range chat.Paginate(text, chat.MessageLimit) {
		if err := a.Send(ctx, channel, page); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) DM(ctx context.Context, user domain.UserID, text string) error {
	ch, err := a.session.UserChannelCreate(user.String(), discordgo.WithContext(ctx))
	if err != nil {
		return translate("open direct message", err)
	}
	return a.SendPaged(ctx, domain.ChannelID(ch.ID), text)
}

func (a *Adapter) User(ctx context.Context, id domain.UserID) (*chat.User, error) {
	u, err := a.session.User(id.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("fetch user", err)
	}
	out := toUser(u)
	return &out, nil
}

// Confirm accepts "yes", "y", "no" or "n" from user in channel; other
// messages are ignored.
func (a *Adapter) Confirm(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration) (bool, error) {
	reply, err := a.await(ctx, channel, user, prompt, timeout, func(text string) bool {
		_, ok := parseYesNo(text)
		return ok
	})
	if errors.Is(err, sentinel.ErrTimeout) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	yes, _ := parseYesNo(reply)
	return yes, nil
}

func (a *Adapter) AwaitReply(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration) (string, error) {
	return a.await(ctx, channel, user, prompt, timeout, func(string) bool { return true })
}

func (a *Adapter) await(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, timeout time.Duration, accept func(string) bool) (string, error) {
	key := waitKey{channel: channel, user: user}
	w := &waiter{accept: accept, reply: make(chan string, 1)}
	a.mu.Lock()
	a.waiters[key] = append(a.waiters[key], w)
	a.mu.Unlock()
	defer a.forget(key, w)

	if prompt != "" {
		if err := a.Send(ctx, channel, prompt); err != nil {
			return "", err
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-w.reply:
		return reply, nil
	case <-timer.C:
		return "", sentinel.ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *Adapter) forget(key waitKey, w *waiter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	list := a.waiters[key]
	for i, cur := range list {
		if cur == w {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(a.waiters, key)
		return
	}
	a.waiters[key] = list
}

// Dispatch hands msg to the oldest waiter expecting it and reports whether
// one took it.
func (a *Adapter) Dispatch(msg chat.Message) bool {
	key := waitKey{channel: msg.ChannelID, user: msg.Author.ID}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, w := range a.waiters[key] {
		if !w.accept(msg.Content) {
			continue
		}
		select {
		case w.reply <- msg.Content:
		default:
			continue
		}
		list := a.waiters[key]
		a.waiters[key] = append(list[:i:i], list[i+1:]...)
		if len(a.waiters[key]) == 0 {
			delete(a.waiters, key)
		}
		return true
	}
	return false
}

func parseYesNo(text string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	return false, false
}

// =============================================================================
// chat.Guilds
// =============================================================================

func (a *Adapter) Guilds(ctx context.Context) ([]chat.Guild, error) {
	var out []chat.Guild
	after := ""
	for {
		page, err := a.session.UserGuilds(guildPage, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate("list guilds", err)
		}
		for _, g := range page {
			out = append(out, chat.Guild{ID: domain.GuildID(g.ID), Name: g.Name})
			after = g.ID
		}
		if len(page) < guildPage {
			return out, nil
		}
	}
}

func (a *Adapter) Roles(ctx context.Context, guild domain.GuildID) ([]chat.Role, error) {
	roles, err := a.session.GuildRoles(guild.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("list roles", err)
	}
	out := make([]chat.Role, len(roles))
	for i, r := range roles {
		out[i] = chat.Role{
			ID:       domain.RoleID(r.ID),
			Name:     r.Name,
			Position: r.Position,
			Managed:  r.Managed,
		}
	}
	return out, nil
}

func (a *Adapter) Member(ctx context.Context, guild domain.GuildID, user domain.UserID) (*chat.Member, error) {
	m, err := a.session.GuildMember(guild.String(), user.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("fetch member", err)
	}
	out := toMember(guild.String(), m)
	return &out, nil
}

func (a *Adapter) Members(ctx context.Context, guild domain.GuildID, after domain.UserID, limit int) ([]chat.Member, error) {
	members, err := a.session.GuildMembers(guild.String(), after.String(), limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("list members", err)
	}
	out := make([]chat.Member, len(members))
	for i, m := range members {
		out[i] = toMember(guild.String(), m)
	}
	return out, nil
}

func (a *Adapter) SetMemberRoles(ctx context.Context, guild domain.GuildID, user domain.UserID, roles []domain.RoleID, reason string) error {
	ids := make([]string, len(roles))
	for i, r := range roles {
		ids[i] = r.String()
	}
	_, err := a.session.GuildMemberEdit(guild.String(), user.String(),
		&discordgo.GuildMemberParams{Roles: &ids},
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	return translate("edit member roles", err)
}

// =============================================================================
// Supporting surfaces
// =============================================================================

// Permissions returns user's computed permission bits in channel.
func (a *Adapter) Permissions(ctx context.Context, channel domain.ChannelID, user domain.UserID) (int64, error) {
	perms, err := a.session.UserChannelPermissions(user.String(), channel.String(), discordgo.WithContext(ctx))
	if err != nil {
		return 0, translate("compute permissions", err)
	}
	return perms, nil
}

// History pages backwards through channel for the legacy history scan.
func (a *Adapter) History(ctx context.Context, channel domain.ChannelID, before string, limit int) ([]chat.Message, error) {
	msgs, err := a.session.ChannelMessages(channel.String(), limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("read history", err)
	}
	out := make([]chat.Message, len(msgs))
	for i, m := range msgs {
		out[i] = toMessage(m)
	}
	return out, nil
}

// ReportFault direct-messages every operator. Delivery failures are logged.
func (a *Adapter) ReportFault(ctx context.Context, summary string, err error, stack []byte) {
	var b strings.Builder
	b.WriteString(summary)
	if err != nil {
		fmt.Fprintf(&b, "\n```\n%v\n```", err)
	}
	if len(stack) > 0 {
		fmt.Fprintf(&b, "\n```go\n%s\n```", stack)
	}
	text := b.String()
	for _, op := range a.operators {
		if derr := a.DM(ctx, op, text); derr != nil {
			a.logger.ErrorContext(ctx, "failed to report fault to operator", "operator_id", op, "error", derr)
		}
	}
}
