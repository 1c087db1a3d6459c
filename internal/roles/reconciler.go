package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/time/rate"

	"citizenship/internal/chat"
	"citizenship/internal/nation"
	"citizenship/internal/platform/metrics"
	"citizenship/internal/titles"
	"citizenship/pkg/domain"
	dErrors "citizenship/pkg/domain-errors"
	"citizenship/pkg/platform/sentinel"
)

const (
	defaultPageSize   = 1000
	defaultYieldEvery = 50
	taskReason        = "Citizenship autorole task"
)

// Identities resolves a member to their claimed nation.
type Identities interface {
	Get(user domain.UserID) (nation.Key, bool)
}

// TitleSource returns the committed title snapshot.
type TitleSource interface {
	Load() *titles.Snapshot
}

// EnabledGuilds lists the guilds with autorole on.
type EnabledGuilds interface {
	Enabled() []domain.GuildID
}

// Stats summarizes a full pass.
type Stats struct {
	Guilds    int
	Members   int
	Edited    int
	Forbidden int
	Failed    int
}

// Reconciler applies role plans through the chat platform.
type Reconciler struct {
	guilds     chat.Guilds
	identities Identities
	cache      TitleSource
	settings   EnabledGuilds
	limiter    *rate.Limiter
	dryRun     bool
	yieldEvery int
	pageSize   int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithDryRun computes and logs plans without applying them.
func WithDryRun(on bool) Option {
	return func(r *Reconciler) { r.dryRun = on }
}

// WithRateLimit paces role edits. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Reconciler) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithYieldEvery sets how many members a full pass handles between yields.
func WithYieldEvery(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.yieldEvery = n
		}
	}
}

func WithPageSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

func New(guilds chat.Guilds, identities Identities, cache TitleSource, settings EnabledGuilds, opts ...Option) (*Reconciler, error) {
	if guilds == nil || identities == nil || cache == nil || settings == nil {
		return nil, fmt.Errorf("guilds, identities, title cache and settings are required")
	}
	r := &Reconciler{
		guilds:     guilds,
		identities: identities,
		cache:      cache,
		settings:   settings,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		yieldEvery: defaultYieldEvery,
		pageSize:   defaultPageSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// DryRun reports whether edits are suppressed.
func (r *Reconciler) DryRun() bool { return r.dryRun }

// Member reconciles one member. Bots and members without a claim get an
// empty plan.
func (r *Reconciler) Member(ctx context.Context, m chat.Member) (Plan, error) {
	guildRoles, err := r.guilds.Roles(ctx, m.GuildID)
	if err != nil {
		return Plan{}, r.translate(err, "list roles")
	}
	return r.member(ctx, m, guildRoles, "")
}

func (r *Reconciler) member(ctx context.Context, m chat.Member, guildRoles []chat.Role, reason string) (Plan, error) {
	if m.User.Bot {
		return Plan{}, nil
	}
	key, ok := r.identities.Get(m.User.ID)
	if !ok {
		return Plan{}, nil
	}
	snap := r.cache.Load()
	plan := Diff(m.RoleIDs, guildRoles, snap.Desired(key), snap.All())
	if reason == "" {
		reason = "Set nation to " + nation.Display(key)
	}
	return plan, r.apply(ctx, m, plan, reason)
}

// User reconciles user in every enabled guild they belong to.
func (r *Reconciler) User(ctx context.Context, user domain.UserID) error {
	var errs []error
	for _, gid := range r.settings.Enabled() {
		m, err := r.guilds.Member(ctx, gid, user)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, r.translate(err, "fetch member"))
			continue
		}
		if _, err := r.Member(ctx, *m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// All reconciles every member of every enabled guild. Permission failures
// on single members are logged and skipped; a guild that cannot be listed
// is reported in the returned error after the other guilds are done.
func (r *Reconciler) All(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		errs  []error
	)
	for _, gid := range r.settings.Enabled() {
		if err := r.guild(ctx, gid, &stats); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			r.logger.ErrorContext(ctx, "guild reconcile failed", "guild_id", gid, "error", err)
			errs = append(errs, fmt.Errorf("guild %s: %w", gid, err))
			continue
		}
		stats.Guilds++
	}
	r.logger.InfoContext(ctx, "role reconcile finished",
		"guilds", stats.Guilds,
		"members", stats.Members,
		"edited", stats.Edited,
		"forbidden", stats.Forbidden,
		"failed", stats.Failed,
		"dry_run", r.dryRun,
	)
	return stats, errors.Join(errs...)
}

func (r *Reconciler) guild(ctx context.Context, gid domain.GuildID, stats *Stats) error {
	guildRoles, err := r.guilds.Roles(ctx, gid)
	if err != nil {
		return r.translate(err, "list roles")
	}
	var after domain.UserID
	for {
		page, err := r.guilds.Members(ctx, gid, after, r.pageSize)
		if err != nil {
			return r.translate(err, "list members")
		}
		for _, m := range page {
			stats.Members++
			plan, err := r.member(ctx, m, guildRoles, taskReason)
			switch {
			case err == nil:
				if !plan.Empty() && !r.dryRun {
					stats.Edited++
				}
			case dErrors.HasCode(err, dErrors.CodeForbidden):
				stats.Forbidden++
				r.logger.WarnContext(ctx, "role edit forbidden", "guild_id", gid, "user_id", m.User.ID)
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				stats.Failed++
				r.logger.WarnContext(ctx, "role edit failed", "guild_id", gid, "user_id", m.User.ID, "error", err)
			}
			if stats.Members%r.yieldEvery == 0 {
				runtime.Gosched()
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
		if len(page) < r.pageSize {
			return nil
		}
		after = page[len(page)-1].User.ID
	}
}

// Strip removes every title role from user in every enabled guild. A guild
// failing does not stop the others.
func (r *Reconciler) Strip(ctx context.Context, user domain.UserID, reason string) error {
	all := r.cache.Load().All()
	var errs []error
	for _, gid := range r.settings.Enabled() {
		m, err := r.guilds.Member(ctx, gid, user)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", gid, r.translate(err, "fetch member")))
			continue
		}
		guildRoles, err := r.guilds.Roles(ctx, gid)
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", gid, r.translate(err, "list roles")))
			continue
		}
		plan := Diff(m.RoleIDs, guildRoles, titles.NewSet(), all)
		if err := r.apply(ctx, *m, plan, reason); err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", gid, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) apply(ctx context.Context, m chat.Member, plan Plan, reason string) error {
	if plan.Empty() {
		return nil
	}
	if r.dryRun {
		r.metrics.IncRoleEdit("dry_run")
		r.logger.InfoContext(ctx, "dry run: role plan not applied",
			"guild_id", m.GuildID,
			"user_id", m.User.ID,
			"add", idList(plan.Add),
			"remove", idList(plan.Remove),
		)
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := r.guilds.SetMemberRoles(ctx, m.GuildID, m.User.ID, plan.Desired, reason); err != nil {
		err = r.translate(err, "set member roles")
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			r.metrics.IncRoleEdit("forbidden")
		} else {
			r.metrics.IncRoleEdit("error")
		}
		return err
	}
	r.metrics.IncRoleEdit("applied")
	return nil
}

func (r *Reconciler) translate(err error, action string) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, sentinel.ErrForbidden):
		return dErrors.Wrap(err, dErrors.CodeForbidden, "missing permission to "+action)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, action)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, action)
	}
}

func idList(ids []domain.RoleID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
