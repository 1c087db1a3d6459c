package fields

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"citizenship/pkg/platform/sentinel"
	txcontext "citizenship/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS fields (
	kind       TEXT NOT NULL,
	entity     TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, name, entity)
);
CREATE INDEX IF NOT EXISTS fields_entity_idx ON fields (kind, entity);
`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists fields in a single table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the fields table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure fields schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := txcontext.From(ctx); ok {
		return t
	}
	return s.pool
}

func (s *PostgresStore) All(ctx context.Context, kind Kind, name string) (map[string]string, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT entity, value FROM fields WHERE kind = $1 AND name = $2`, string(kind), name)
	if err != nil {
		return nil, fmt.Errorf("read %s %s fields: %w", kind, name, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var entity, value string
		if err := rows.Scan(&entity, &value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out[entity] = value
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, ref Ref) (string, error) {
	var value string
	err := s.q(ctx).QueryRow(ctx,
		`SELECT value FROM fields WHERE kind = $1 AND name = $2 AND entity = $3`,
		string(ref.Kind), ref.Name, ref.Entity).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read field %s: %w", ref.Name, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, ref Ref, value string) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO fields (kind, entity, name, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (kind, name, entity)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		string(ref.Kind), ref.Entity, ref.Name, value)
	if err != nil {
		return fmt.Errorf("write field %s: %w", ref.Name, err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, ref Ref) error {
	_, err := s.q(ctx).Exec(ctx,
		`DELETE FROM fields WHERE kind = $1 AND name = $2 AND entity = $3`,
		string(ref.Kind), ref.Name, ref.Entity)
	if err != nil {
		return fmt.Errorf("clear field %s: %w", ref.Name, err)
	}
	return nil
}

func (s *PostgresStore) ClearEntity(ctx context.Context, kind Kind, entity string) error {
	_, err := s.q(ctx).Exec(ctx,
		`DELETE FROM fields WHERE kind = $1 AND entity = $2`, string(kind), entity)
	if err != nil {
		return fmt.Errorf("clear %s %s: %w", kind, entity, err)
	}
	return nil
}

// RunInTx runs fn inside one database transaction. Stores called with the
// derived context join it.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, s.pool, func(t pgx.Tx) error {
		return fn(txcontext.WithTx(ctx, t))
	})
}
