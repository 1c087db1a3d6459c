// Package legacy migrates data from the previous bot's data.json export and
// offers a one-off scan of old greeting replies to recover unclaimed nations.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"citizenship/internal/audit"
	"citizenship/internal/nation"
	"citizenship/pkg/domain"
	dErrors "citizenship/pkg/domain-errors"
)

// Identities is the slice of the identity store the import writes through.
type Identities interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	SetDefault(user domain.UserID, key nation.Key) bool
	Owner(key nation.Key) (domain.UserID, bool)
}

type Settings interface {
	SetEnabled(ctx context.Context, guild domain.GuildID, on bool) error
	SetCredential(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, e audit.Event) error
}

// Report counts what an import or scan changed.
type Report struct {
	Nations    int
	Skipped    int
	Guilds     int
	Credential bool
}

func (r Report) String() string {
	return fmt.Sprintf("imported %d nations (%d skipped), %d guild settings, credential %t",
		r.Nations, r.Skipped, r.Guilds, r.Credential)
}

type Importer struct {
	identities Identities
	settings   Settings
	audit      AuditPublisher
	logger     *slog.Logger
}

type Option func(*Importer)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) { i.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(i *Importer) { i.audit = p }
}

func New(identities Identities, settings Settings, opts ...Option) (*Importer, error) {
	if identities == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	i := &Importer{
		identities: identities,
		settings:   settings,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

type guildSettings struct {
	On *bool `json:"on"`
}

// Import reads a legacy data.json file and applies it.
func (i *Importer) Import(ctx context.Context, path string) (*Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read legacy data")
	}
	return i.ImportData(ctx, raw)
}

// ImportData applies a legacy export. Claims never overwrite: a user who
// already holds a nation, or a nation someone already holds, is skipped.
// Guild flags and the credential are overwritten.
func (i *Importer) ImportData(ctx context.Context, raw []byte) (*Report, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "legacy data is not a JSON object")
	}

	var nations map[string]json.RawMessage
	if blob, ok := top["nations"]; ok {
		if err := json.Unmarshal(blob, &nations); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid nations section")
		}
	}
	var settings map[string]json.RawMessage
	if blob, ok := top["settings"]; ok {
		if err := json.Unmarshal(blob, &settings); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid settings section")
		}
	}

	report := &Report{}
	if err := i.importSettings(ctx, top, settings, report); err != nil {
		return report, err
	}
	err := i.identities.RunInTx(ctx, func(ctx context.Context) error {
		i.importNations(ctx, nations, report)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("commit imported nations: %w", err)
	}
	i.logger.InfoContext(ctx, "legacy data imported",
		"nations", report.Nations,
		"skipped", report.Skipped,
		"guilds", report.Guilds,
		"credential", report.Credential,
	)
	return report, nil
}

func (i *Importer) importSettings(ctx context.Context, top, settings map[string]json.RawMessage, report *Report) error {
	if blob, ok := settings["KEY"]; ok {
		var key string
		if err := json.Unmarshal(blob, &key); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid settings KEY")
		}
		if key != "" {
			if err := i.settings.SetCredential(ctx, key); err != nil {
				return err
			}
			report.Credential = true
		}
	}

	for _, section := range []map[string]json.RawMessage{top, settings} {
		for id, blob := range section {
			guild, err := domain.ParseGuildID(id)
			if err != nil {
				continue
			}
			var gs guildSettings
			if err := json.Unmarshal(blob, &gs); err != nil || gs.On == nil {
				i.logger.WarnContext(ctx, "skipping malformed guild settings", "guild_id", id)
				continue
			}
			if err := i.settings.SetEnabled(ctx, guild, *gs.On); err != nil {
				return err
			}
			report.Guilds++
		}
	}
	return nil
}

func (i *Importer) importNations(ctx context.Context, nations map[string]json.RawMessage, report *Report) {
	names := make([]string, 0, len(nations))
	for name := range nations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key, err := nation.Normalize(name)
		if err != nil {
			report.Skipped++
			continue
		}
		// Older exports store ids as numbers, newer ones as strings.
		user, err := domain.ParseUserID(strings.Trim(string(nations[name]), `"`))
		if err != nil {
			report.Skipped++
			continue
		}
		if i.claim(ctx, user, key) {
			report.Nations++
		} else {
			report.Skipped++
		}
	}
}

// claim binds key to user unless either side is already taken.
func (i *Importer) claim(ctx context.Context, user domain.UserID, key nation.Key) bool {
	if _, taken := i.identities.Owner(key); taken {
		return false
	}
	if !i.identities.SetDefault(user, key) {
		return false
	}
	if i.audit != nil {
		if err := i.audit.Emit(ctx, audit.Event{UserID: user, Action: audit.ActionImported, Nation: key.String()}); err != nil {
			i.logger.WarnContext(ctx, "failed to record import", "user_id", user, "error", err)
		}
	}
	return true
}
