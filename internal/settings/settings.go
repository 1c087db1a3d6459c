// Package settings owns the per-guild autorole flag and the shared
// spreadsheet credential.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"citizenship/internal/fields"
	"citizenship/pkg/domain"
	"citizenship/pkg/platform/sentinel"
)

// Settings mirrors the stored guild flags in an in-memory enabled set so the
// reconciler never hits the store on the hot path.
type Settings struct {
	store        fields.Store
	logger       *slog.Logger
	bootstrapKey string

	mu      sync.RWMutex
	enabled map[domain.GuildID]struct{}
}

type Option func(*Settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Settings) { s.logger = logger }
}

// WithBootstrapKey seeds the shared credential at Load when none is stored.
func WithBootstrapKey(key string) Option {
	return func(s *Settings) { s.bootstrapKey = strings.TrimSpace(key) }
}

func New(store fields.Store, opts ...Option) (*Settings, error) {
	if store == nil {
		return nil, fmt.Errorf("field store is required")
	}
	s := &Settings{
		store:   store,
		logger:  slog.Default(),
		enabled: make(map[domain.GuildID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads every guild flag and applies the bootstrap credential.
func (s *Settings) Load(ctx context.Context) error {
	flags, err := s.store.All(ctx, fields.KindGuild, fields.NameEnabled)
	if err != nil {
		return fmt.Errorf("load guild flags: %w", err)
	}
	enabled := make(map[domain.GuildID]struct{}, len(flags))
	for id, v := range flags {
		on, err := strconv.ParseBool(v)
		if err != nil {
			s.logger.WarnContext(ctx, "ignoring malformed guild flag", "guild_id", id, "value", v)
			continue
		}
		if on {
			enabled[domain.GuildID(id)] = struct{}{}
		}
	}
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	if s.bootstrapKey == "" {
		return nil
	}
	current, err := s.Credential(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		s.logger.InfoContext(ctx, "seeding shared sheets credential from environment")
		return s.SetCredential(ctx, s.bootstrapKey)
	}
	return nil
}

func (s *Settings) IsEnabled(guild domain.GuildID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enabled[guild]
	return ok
}

// Enabled lists the enabled guilds in a stable order.
func (s *Settings) Enabled() []domain.GuildID {
	s.mu.RLock()
	out := make([]domain.GuildID, 0, len(s.enabled))
	for id := range s.enabled {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetEnabled persists the flag, then updates the in-memory set.
func (s *Settings) SetEnabled(ctx context.Context, guild domain.GuildID, on bool) error {
	if err := s.store.Set(ctx, fields.Guild(guild.String(), fields.NameEnabled), strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("store guild flag: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.enabled[guild] = struct{}{}
	} else {
		delete(s.enabled, guild)
	}
	return nil
}

// Toggle sets the flag to *value, or flips it when value is nil, and
// returns the new state.
func (s *Settings) Toggle(ctx context.Context, guild domain.GuildID, value *bool) (bool, error) {
	on := !s.IsEnabled(guild)
	if value != nil {
		on = *value
	}
	if err := s.SetEnabled(ctx, guild, on); err != nil {
		return false, err
	}
	return on, nil
}

// Credential returns the shared spreadsheet API key, or "" when unset.
func (s *Settings) Credential(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, fields.Global(fields.NameSheetsKey))
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read sheets credential: %w", err)
	}
	return v, nil
}

// SetCredential stores key; an empty key clears it.
func (s *Settings) SetCredential(ctx context.Context, key string) error {
	ref := fields.Global(fields.NameSheetsKey)
	key = strings.TrimSpace(key)
	var err error
	if key == "" {
		err = s.store.Clear(ctx, ref)
	} else {
		err = s.store.Set(ctx, ref, key)
	}
	if err != nil {
		return fmt.Errorf("store sheets credential: %w", err)
	}
	return nil
}
