package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"citizenship/internal/chat"
	"citizenship/internal/claim"
	"citizenship/internal/legacy"
	"citizenship/internal/nation"
	"citizenship/internal/scheduler"
	"citizenship/pkg/domain"
	"citizenship/pkg/requestcontext"
)

// Claims is the claim workflow as the command surface uses it.
type Claims interface {
	Claim(ctx context.Context, req claim.Request) (*claim.Result, error)
	Remove(ctx context.Context, user domain.UserID) (nation.Key, error)
	Show(ctx context.Context, q claim.Query) (claim.Identity, error)
	DeleteUserData(ctx context.Context, user domain.UserID) error
	ExportUserData(ctx context.Context, user domain.UserID) (*claim.Export, error)
	Greet(ctx context.Context, m chat.Member) error
	HomeRegion() nation.Key
}

type Toggler interface {
	Toggle(ctx context.Context, guild domain.GuildID, value *bool) (bool, error)
}

// Task is the refresh scheduler's operator surface.
type Task interface {
	RunNow() bool
	Restart(ctx context.Context) error
	Status() scheduler.Status
}

type Importer interface {
	Import(ctx context.Context, path string) (*legacy.Report, error)
	ScanHistory(ctx context.Context, history legacy.History, channel domain.ChannelID, limit int) (*legacy.Report, error)
}

// Permissions computes a user's permission bits in a channel.
type Permissions interface {
	Permissions(ctx context.Context, channel domain.ChannelID, user domain.UserID) (int64, error)
}

// Router parses prefixed commands and forwards join events.
type Router struct {
	messenger chat.Messenger
	claims    Claims
	prefix    string
	perms     Permissions
	toggles   Toggler
	task      Task
	importer  Importer
	history   legacy.History
	replies   func(chat.Message) bool
	operators map[domain.UserID]struct{}
	logger    *slog.Logger
}

type RouterOption func(*Router)

func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func WithPermissions(p Permissions) RouterOption {
	return func(r *Router) { r.perms = p }
}

func WithToggler(t Toggler) RouterOption {
	return func(r *Router) { r.toggles = t }
}

func WithTask(t Task) RouterOption {
	return func(r *Router) { r.task = t }
}

func WithImporter(i Importer, history legacy.History) RouterOption {
	return func(r *Router) {
		r.importer = i
		r.history = history
	}
}

// WithReplies lets pending prompts claim messages before command parsing.
func WithReplies(dispatch func(chat.Message) bool) RouterOption {
	return func(r *Router) { r.replies = dispatch }
}

// WithOperatorIDs sets who may run task and import commands.
func WithOperatorIDs(ids ...domain.UserID) RouterOption {
	return func(r *Router) {
		for _, id := range ids {
			r.operators[id] = struct{}{}
		}
	}
}

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

func NewRouter(messenger chat.Messenger, claims Claims, opts ...RouterOption) (*Router, error) {
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if claims == nil {
		return nil, fmt.Errorf("claim service is required")
	}
	r := &Router{
		messenger: messenger,
		claims:    claims,
		prefix:    "!",
		operators: make(map[domain.UserID]struct{}),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Attach registers the router's gateway handlers and returns a function that
// removes them. ctx bounds every handler invocation.
func (r *Router) Attach(ctx context.Context, h Handlers) (detach func()) {
	removeMsg := h.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		r.HandleMessage(eventContext(ctx, m.ID), toMessage(m.Message))
	})
	removeJoin := h.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		r.HandleJoin(eventContext(ctx, uuid.NewString()), toMember(m.GuildID, m.Member))
	})
	return func() {
		removeMsg()
		removeJoin()
	}
}

// eventContext pins the event id and a single "now" for one gateway event.
func eventContext(ctx context.Context, id string) context.Context {
	ctx = requestcontext.WithEventID(ctx, id)
	return requestcontext.WithTime(ctx, time.Now())
}

// HandleJoin greets a new member.
func (r *Router) HandleJoin(ctx context.Context, m chat.Member) {
	if err := r.claims.Greet(ctx, m); err != nil {
		r.logger.WarnContext(ctx, "join greeting failed",
			"guild_id", m.GuildID,
			"user_id", m.User.ID,
			"error", err,
		)
	}
}

// HandleMessage routes one inbound message.
func (r *Router) HandleMessage(ctx context.Context, msg chat.Message) {
	if msg.Author.Bot {
		return
	}
	if r.replies != nil && r.replies(msg) {
		return
	}
	cmd, ok := r.parse(msg.Content)
	if !ok {
		return
	}
	r.logger.DebugContext(ctx, "command received",
		"event_id", requestcontext.EventID(ctx),
		"command", cmd.name,
		"user_id", msg.Author.ID,
		"guild_id", msg.GuildID,
	)
	reply := r.dispatch(ctx, msg, cmd)
	if reply == "" {
		return
	}
	if err := r.messenger.SendPaged(ctx, msg.ChannelID, reply); err != nil {
		r.logger.WarnContext(ctx, "failed to send reply", "channel_id", msg.ChannelID, "error", err)
	}
}

type command struct {
	name string
	args string
}

// parse recognises "<prefix>identify [sub] [args]". A bare argument that is
// not a subcommand is a nation to claim.
func (r *Router) parse(content string) (command, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), r.prefix)
	if !ok {
		return command{}, false
	}
	head, rest, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if !strings.EqualFold(head, "identify") {
		return command{}, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return command{name: "help"}, true
	}
	sub, args, _ := strings.Cut(rest, " ")
	switch name := strings.ToLower(sub); name {
	case "nation", "remove", "show", "set", "task", "import", "data", "forget", "help":
		return command{name: name, args: strings.TrimSpace(args)}, true
	}
	return command{name: "nation", args: rest}, true
}

func (r *Router) isOperator(user domain.UserID) bool {
	_, ok := r.operators[user]
	return ok
}

// allowed reports whether the author holds any of perms in the channel.
// Administrators always pass.
func (r *Router) allowed(ctx context.Context, msg chat.Message, perms int64) bool {
	if r.isOperator(msg.Author.ID) {
		return true
	}
	if r.perms == nil || msg.GuildID.IsNil() {
		return false
	}
	have, err := r.perms.Permissions(ctx, msg.ChannelID, msg.Author.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "permission lookup failed", "user_id", msg.Author.ID, "error", err)
		return false
	}
	return have&discordgo.PermissionAdministrator != 0 || have&perms != 0
}
