// Package memory is an in-process chat platform. It backs the service's
// tests and local runs without a bot token.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"citizenship/internal/chat"
	"citizenship/pkg/domain"
	"citizenship/pkg/platform/sentinel"
)

// Sent is one recorded outbound message.
type Sent struct {
	Channel domain.ChannelID
	User    domain.UserID
	Text    string
}

// Fault is one recorded operator report.
type Fault struct {
	Summary string
	Err     error
	Stack   []byte
}

type guild struct {
	info    chat.Guild
	roles   []chat.Role
	members map[domain.UserID]*chat.Member
	failure error
}

// Platform implements chat.Messenger, chat.Guilds and chat.OperatorReporter
// against in-memory state.
type Platform struct {
	mu       sync.Mutex
	guilds   map[domain.GuildID]*guild
	users    map[domain.UserID]chat.User
	answers  map[domain.UserID]bool
	replies  map[domain.UserID][]string
	sent     []Sent
	dms      []Sent
	faults   []Fault
	roleEdit int
}

func NewPlatform() *Platform {
	return &Platform{
		guilds:  make(map[domain.GuildID]*guild),
		users:   make(map[domain.UserID]chat.User),
		answers: make(map[domain.UserID]bool),
		replies: make(map[domain.UserID][]string),
	}
}

// =============================================================================
// Setup
// =============================================================================

func (p *Platform) AddGuild(id domain.GuildID, name string, roles ...chat.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[id] = &guild{
		info:    chat.Guild{ID: id, Name: name},
		roles:   append([]chat.Role(nil), roles...),
		members: make(map[domain.UserID]*chat.Member),
	}
}

func (p *Platform) AddUser(u chat.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
}

// AddMember registers u (if needed) and joins it to the guild.
func (p *Platform) AddMember(gid domain.GuildID, u chat.User, roles ...domain.RoleID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
	g := p.guilds[gid]
	g.members[u.ID] = &chat.Member{GuildID: gid, User: u, RoleIDs: append([]domain.RoleID(nil), roles...)}
}

// FailGuild makes every guild operation on gid return err. A nil err clears it.
func (p *Platform) FailGuild(gid domain.GuildID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[gid].failure = err
}

// Answer presets the user's answer to the next Confirm.
func (p *Platform) Answer(user domain.UserID, yes bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers[user] = yes
}

// Reply queues a message the user will post in answer to AwaitReply.
func (p *Platform) Reply(user domain.UserID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies[user] = append(p.replies[user], text)
}

// =============================================================================
// Inspection
// =============================================================================

func (p *Platform) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.sent...)
}

func (p *Platform) DMs() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.dms...)
}

func (p *Platform) Faults() []Fault {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fault(nil), p.faults...)
}

// RoleEdits counts successful SetMemberRoles calls.
func (p *Platform) RoleEdits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roleEdit
}

// MemberRoleNames returns the member's role names, sorted.
func (p *Platform) MemberRoleNames(gid domain.GuildID, uid domain.UserID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := p.guilds[gid]
	m, ok := g.members[uid]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m.RoleIDs))
	for _, id := range m.RoleIDs {
		for _, r := range g.roles {
			if r.ID == id {
				names = append(names, r.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// chat.Messenger
// =============================================================================

func (p *Platform) Send(_ context.Context, channel domain.ChannelID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, Sent{Channel: channel, Text: text})
	return nil
}

func (p *Platform) SendPaged(ctx context.Context, channel domain.ChannelID, text string) error {
	for _, page := range chat.Paginate(text, chat.MessageLimit) {
		if err := p.Send(ctx, channel, page); err != nil {
			return err
		}
	}
	return nil
}

func (p *Platform) Confirm(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, _ time.Duration) (bool, error) {
	if err := p.Send(ctx, channel, prompt); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	yes, ok := p.answers[user]
	delete(p.answers, user)
	return ok && yes, nil
}

func (p *Platform) AwaitReply(ctx context.Context, channel domain.ChannelID, user domain.UserID, prompt string, _ time.Duration) (string, error) {
	if prompt != "" {
		if err := p.Send(ctx, channel, prompt); err != nil {
			return "", err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	queue := p.replies[user]
	if len(queue) == 0 {
		return "", sentinel.ErrTimeout
	}
	p.replies[user] = queue[1:]
	return queue[0], nil
}

func (p *Platform) DM(_ context.Context, user domain.UserID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms = append(p.dms, Sent{User: user, Text: text})
	return nil
}

func (p *Platform) User(_ context.Context, id domain.UserID) (*chat.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return &u, nil
}

// =============================================================================
// chat.Guilds
// =============================================================================

func (p *Platform) Guilds(context.Context) ([]chat.Guild, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]chat.Guild, 0, len(p.guilds))
	for _, g := range p.guilds {
		out = append(out, g.info)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(string(out[i].ID), string(out[j].ID)) })
	return out, nil
}

func (p *Platform) Roles(_ context.Context, gid domain.GuildID) ([]chat.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.guild(gid)
	if err != nil {
		return nil, err
	}
	return append([]chat.Role(nil), g.roles...), nil
}

func (p *Platform) Member(_ context.Context, gid domain.GuildID, uid domain.UserID) (*chat.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.guild(gid)
	if err != nil {
		return nil, err
	}
	m, ok := g.members[uid]
	if !ok {
		return nil, fmt.Errorf("member %s of %s: %w", uid, gid, sentinel.ErrNotFound)
	}
	return cloneMember(m), nil
}

func (p *Platform) Members(_ context.Context, gid domain.GuildID, after domain.UserID, limit int) ([]chat.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.guild(gid)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.UserID, 0, len(g.members))
	for id := range g.members {
		if after.IsNil() || lessID(string(after), string(id)) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(string(ids[i]), string(ids[j])) })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]chat.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneMember(g.members[id]))
	}
	return out, nil
}

func (p *Platform) SetMemberRoles(_ context.Context, gid domain.GuildID, uid domain.UserID, roles []domain.RoleID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.guild(gid)
	if err != nil {
		return err
	}
	m, ok := g.members[uid]
	if !ok {
		return fmt.Errorf("member %s of %s: %w", uid, gid, sentinel.ErrNotFound)
	}
	m.RoleIDs = append([]domain.RoleID(nil), roles...)
	p.roleEdit++
	return nil
}

// =============================================================================
// chat.OperatorReporter
// =============================================================================

func (p *Platform) ReportFault(_ context.Context, summary string, err error, stack []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = append(p.faults, Fault{Summary: summary, Err: err, Stack: stack})
}

func (p *Platform) guild(gid domain.GuildID) (*guild, error) {
	g, ok := p.guilds[gid]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", gid, sentinel.ErrNotFound)
	}
	if g.failure != nil {
		return nil, g.failure
	}
	return g, nil
}

func cloneMember(m *chat.Member) *chat.Member {
	c := *m
	c.RoleIDs = append([]domain.RoleID(nil), m.RoleIDs...)
	return &c
}

// lessID orders canonical snowflakes numerically.
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

var (
	_ chat.Messenger        = (*Platform)(nil)
	_ chat.Guilds           = (*Platform)(nil)
	_ chat.OperatorReporter = (*Platform)(nil)
)
