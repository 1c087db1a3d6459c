// Package fields is the persistent scalar field store: per-user, per-guild
// and global string values addressed by (kind, entity, name).
//
// The identity store keeps user "nation" fields here, guild settings keep
// the "on" flag, and the shared spreadsheet credential lives in a global
// field.
package fields

import "context"

// Kind scopes a field.
type Kind string

const (
	KindUser   Kind = "user"
	KindGuild  Kind = "guild"
	KindGlobal Kind = "global"
)

// Well-known field names.
const (
	NameNation    = "nation"
	NameEnabled   = "on"
	NameSheetsKey = "sheets_api_key"
)

// Ref addresses one field. Entity is empty for global fields.
type Ref struct {
	Kind   Kind
	Entity string
	Name   string
}

// User addresses a per-user field.
func User(entity, name string) Ref { return Ref{Kind: KindUser, Entity: entity, Name: name} }

// Guild addresses a per-guild field.
func Guild(entity, name string) Ref { return Ref{Kind: KindGuild, Entity: entity, Name: name} }

// Global addresses a process-wide field.
func Global(name string) Ref { return Ref{Kind: KindGlobal, Name: name} }

// Store is implemented by every backend. Get returns sentinel.ErrNotFound
// for unset fields; Clear of an unset field is not an error.
type Store interface {
	All(ctx context.Context, kind Kind, name string) (map[string]string, error)
	Get(ctx context.Context, ref Ref) (string, error)
	Set(ctx context.Context, ref Ref, value string) error
	Clear(ctx context.Context, ref Ref) error
	// ClearEntity removes every field recorded for one entity.
	ClearEntity(ctx context.Context, kind Kind, entity string) error
}

// Transactor is implemented by backends that can group writes atomically.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
