// Package claim implements the nation claim workflow: users link a nation to
// their account, admins set or clear links for others, and every change is
// verified against the nation API, recorded in the audit trail and pushed to
// roles.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"citizenship/internal/audit"
	"citizenship/internal/nation"
	"citizenship/internal/platform/metrics"
	"citizenship/internal/titles"
	"citizenship/pkg/domain"
	dErrors "citizenship/pkg/domain-errors"
	"citizenship/pkg/platform/sentinel"
	"citizenship/pkg/requestcontext"
)

const (
	defaultCooldown       = time.Hour
	defaultConfirmWait    = 60 * time.Second
	defaultGreetingWait   = 10 * time.Minute
	reasonRemoved         = "Member removed identifying nation"
	reasonUnclaimed       = "Nation unclaimed by an administrator"
	reasonDataDeletion    = "Data deletion request"
	reasonClaimReassigned = "Nation reassigned by an administrator"
)

// Outcome is how a claim request ended when it did not fail.
type Outcome string

const (
	OutcomeClaimed        Outcome = "claimed"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	OutcomeRemoved        Outcome = "removed"
	OutcomeDeclined       Outcome = "declined"
)

// Request is one claim attempt. Actor is who typed the command; Target is
// the account the nation is for. A third-party request with no Target
// unclaims the nation.
type Request struct {
	Raw        string
	Actor      domain.UserID
	Target     domain.UserID
	ThirdParty bool
	ChannelID  domain.ChannelID
}

// Result describes a finished claim.
type Result struct {
	Outcome  Outcome
	Nation   nation.Key
	Target   domain.UserID
	Previous nation.Key
	// RolesForbidden is set when the mapping was saved but the bot lacked
	// permission to update roles.
	RolesForbidden bool
	ThirdParty     bool
}

type Service struct {
	identities Identities
	verifier   Verifier
	reconciler Reconciler
	cache      *titles.Cache
	prompter   Prompter
	audit      AuditPublisher
	guilds     EnabledGuilds
	logger     *slog.Logger
	metrics    *metrics.Metrics

	homeRegion   nation.Key
	cooldowns    *cooldowns
	confirmWait  time.Duration
	greetingWait time.Duration
	welcome      map[domain.GuildID]domain.ChannelID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithPrompter(p Prompter) Option {
	return func(s *Service) { s.prompter = p }
}

func WithEnabledGuilds(g EnabledGuilds) Option {
	return func(s *Service) { s.guilds = g }
}

// WithHomeRegion sets the region whose nations count as residents.
func WithHomeRegion(region nation.Key) Option {
	return func(s *Service) { s.homeRegion = region }
}

func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldowns = newCooldowns(d)
		}
	}
}

// WithConfirmTimeout bounds the replace-nation prompt.
func WithConfirmTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.confirmWait = d
		}
	}
}

// WithWelcomeChannels maps guilds to the channel where joiners are greeted.
func WithWelcomeChannels(channels map[domain.GuildID]domain.ChannelID) Option {
	return func(s *Service) { s.welcome = channels }
}

func WithGreetingTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.greetingWait = d
		}
	}
}

func New(identities Identities, verifier Verifier, reconciler Reconciler, cache *titles.Cache, opts ...Option) (*Service, error) {
	if identities == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("nation verifier is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("role reconciler is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("title cache is required")
	}
	s := &Service{
		identities:   identities,
		verifier:     verifier,
		reconciler:   reconciler,
		cache:        cache,
		logger:       slog.Default(),
		homeRegion:   "the_north_pacific",
		cooldowns:    newCooldowns(defaultCooldown),
		confirmWait:  defaultConfirmWait,
		greetingWait: defaultGreetingWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HomeRegion is the region whose nations count as residents.
func (s *Service) HomeRegion() nation.Key { return s.homeRegion }

// Claim runs the claim workflow.
func (s *Service) Claim(ctx context.Context, req Request) (*Result, error) {
	res, err := s.claim(ctx, req)
	switch {
	case err != nil:
		s.metrics.IncClaim(string(dErrors.CodeOf(err)))
	default:
		s.metrics.IncClaim(string(res.Outcome))
	}
	return res, err
}

func (s *Service) claim(ctx context.Context, req Request) (*Result, error) {
	now := requestcontext.Now(ctx)
	if !req.ThirdParty {
		if left := s.cooldowns.remaining(req.Target, now); left > 0 {
			return nil, &CooldownError{Remaining: left}
		}
	}

	ref, err := nation.ParseReference(req.Raw)
	if err != nil {
		return nil, ErrInvalidNation
	}
	key := ref.Key
	res := &Result{Nation: key, Target: req.Target, ThirdParty: req.ThirdParty}

	owner, claimed := s.identities.Owner(key)
	if claimed {
		switch {
		case req.ThirdParty && req.Target.IsNil():
			return s.unclaim(ctx, req, key, res)
		case owner == req.Target:
			res.Outcome = OutcomeAlreadyClaimed
			return res, nil
		case !req.ThirdParty:
			return nil, &ConflictError{Owner: owner}
		}
	}
	if req.Target.IsNil() {
		return nil, ErrNoSuchUser
	}

	if current, ok := s.identities.Get(req.Target); ok && !req.ThirdParty {
		yes, err := s.confirmReplace(ctx, req, current, key)
		if err != nil {
			return nil, err
		}
		if !yes {
			res.Outcome = OutcomeDeclined
			return res, nil
		}
	}

	verified, err := s.verifier.Nation(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, ErrNationNotFound
	case err != nil:
		s.logger.WarnContext(ctx, "nation verification failed", "nation", key, "error", err)
		return nil, ErrVerificationUnavailable
	}

	// Another self-service claim may have taken the nation while this one
	// was verifying; Bind re-checks ownership under the store lock.
	bound, ok := s.identities.Bind(req.Target, key, req.ThirdParty)
	if !ok {
		return nil, &ConflictError{Owner: bound.Owner}
	}
	res.Previous = bound.Previous
	if !req.ThirdParty {
		s.cooldowns.stamp(req.Target, now)
	}
	resident := verified.Region == s.homeRegion
	s.cache.ApplyResidency(key, titles.Residency{Resident: resident, WAMember: verified.WAMember})
	s.emit(ctx, audit.Event{
		UserID:   req.Target,
		ActorID:  actorFor(req),
		Action:   audit.ActionClaimed,
		Nation:   key.String(),
		Previous: res.Previous.String(),
	})
	s.logger.InfoContext(ctx, "nation claimed",
		"user_id", req.Target,
		"nation", key,
		"third_party", req.ThirdParty,
		"resident", resident,
	)

	if !bound.Owner.IsNil() {
		s.strip(ctx, bound.Owner, reasonClaimReassigned)
	}
	if err := s.reconciler.User(ctx, req.Target); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeForbidden) {
			s.logger.WarnContext(ctx, "role update after claim failed", "user_id", req.Target, "error", err)
		}
		res.RolesForbidden = dErrors.HasCode(err, dErrors.CodeForbidden)
	}
	res.Outcome = OutcomeClaimed
	return res, nil
}

func (s *Service) unclaim(ctx context.Context, req Request, key nation.Key, res *Result) (*Result, error) {
	owner, err := s.identities.RemoveNation(key)
	if err != nil {
		return nil, ErrNoSuchUser
	}
	s.emit(ctx, audit.Event{
		UserID:  owner,
		ActorID: req.Actor,
		Action:  audit.ActionUnclaimed,
		Nation:  key.String(),
	})
	s.strip(ctx, owner, reasonUnclaimed)
	res.Outcome = OutcomeRemoved
	res.Target = owner
	return res, nil
}

func (s *Service) confirmReplace(ctx context.Context, req Request, current, next nation.Key) (bool, error) {
	if s.prompter == nil {
		s.logger.WarnContext(ctx, "no prompter configured, declining nation replacement",
			"user_id", req.Target,
			"current", current,
			"next", next,
		)
		return false, nil
	}
	prompt := fmt.Sprintf("You may only claim one nation at a time. Are you sure you want to replace %s with %s?",
		nation.Display(current), nation.Display(next))
	yes, err := s.prompter.Confirm(ctx, req.ChannelID, req.Target, prompt, s.confirmWait)
	if errors.Is(err, sentinel.ErrTimeout) {
		return false, nil
	}
	return yes, err
}

// Remove unlinks the user's own nation and strips every title role.
func (s *Service) Remove(ctx context.Context, user domain.UserID) (nation.Key, error) {
	key, err := s.identities.Remove(user)
	if err != nil {
		return "", ErrNoNation
	}
	s.emit(ctx, audit.Event{UserID: user, Action: audit.ActionRemoved, Nation: key.String()})
	s.strip(ctx, user, reasonRemoved)
	return key, nil
}

// Query selects whose claim Show reports: a user, or a nation reference.
type Query struct {
	User   domain.UserID
	Nation string
}

// Identity is one side-by-side user/nation pair.
type Identity struct {
	User   domain.UserID
	Nation nation.Key
}

// Show looks up a claim by user or by nation.
func (s *Service) Show(_ context.Context, q Query) (Identity, error) {
	if strings.TrimSpace(q.Nation) != "" {
		ref, err := nation.ParseReference(q.Nation)
		if err != nil {
			return Identity{}, ErrInvalidNation
		}
		owner, ok := s.identities.Owner(ref.Key)
		if !ok {
			return Identity{Nation: ref.Key}, ErrNotInData
		}
		return Identity{User: owner, Nation: ref.Key}, nil
	}
	key, ok := s.identities.Get(q.User)
	if !ok {
		return Identity{User: q.User}, ErrNotInData
	}
	return Identity{User: q.User, Nation: key}, nil
}

// DeleteUserData forgets everything held about user and strips their title
// roles in every enabled guild. Role failures are logged, not returned.
func (s *Service) DeleteUserData(ctx context.Context, user domain.UserID) error {
	key, err := s.identities.Remove(user)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return err
	}
	s.cooldowns.forget(user)
	if s.audit != nil {
		if err := s.audit.Forget(ctx, user); err != nil {
			return dErrors.Wrap(err, dErrors.CodeExternal, "failed to delete audit history")
		}
	}
	s.emit(ctx, audit.Event{UserID: user, Action: audit.ActionDataDeleted})
	s.logger.InfoContext(ctx, "user data deleted", "user_id", user, "had_nation", !key.IsZero())
	s.strip(ctx, user, reasonDataDeletion)
	return nil
}

// Export is everything held about one user.
type Export struct {
	Nation  nation.Key
	Titles  []string
	History []audit.Event
}

// ExportUserData gathers the user's claim, its current titles and history.
// A user with no claim and no history yields an empty export.
func (s *Service) ExportUserData(ctx context.Context, user domain.UserID) (*Export, error) {
	out := &Export{}
	if key, ok := s.identities.Get(user); ok {
		out.Nation = key
		if set, ok := s.cache.Load().Titles(key); ok {
			out.Titles = set.Sorted()
		}
	}
	if s.audit != nil {
		history, err := s.audit.List(ctx, user)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeExternal, "failed to read audit history")
		}
		out.History = history
	}
	return out, nil
}

func (s *Service) strip(ctx context.Context, user domain.UserID, reason string) {
	if err := s.reconciler.Strip(ctx, user, reason); err != nil {
		s.logger.WarnContext(ctx, "failed to strip title roles", "user_id", user, "reason", reason, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event", "action", e.Action, "user_id", e.UserID, "error", err)
	}
}

func actorFor(req Request) domain.UserID {
	if req.ThirdParty {
		return req.Actor
	}
	return ""
}
