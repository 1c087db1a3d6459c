package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"citizenship/pkg/domain"
	txcontext "citizenship/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	user_id     TEXT NOT NULL,
	actor_id    TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	nation      TEXT NOT NULL DEFAULT '',
	previous    TEXT NOT NULL DEFAULT '',
	event_id    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_user_idx ON audit_events (user_id, occurred_at);
`

// PostgresStore keeps events in the audit_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO audit_events (id, occurred_at, user_id, actor_id, action, nation, previous, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Timestamp, e.UserID.String(), e.ActorID.String(), string(e.Action), e.Nation, e.Previous, e.EventID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]Event, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT id, occurred_at, user_id, actor_id, action, nation, previous, event_id
		FROM audit_events WHERE user_id = $1 ORDER BY occurred_at`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e              Event
			user, actor, a string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &user, &actor, &a, &e.Nation, &e.Previous, &e.EventID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.UserID, e.ActorID, e.Action = domain.UserID(user), domain.UserID(actor), Action(a)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID domain.UserID) error {
	if _, err := s.q(ctx).Exec(ctx, `DELETE FROM audit_events WHERE user_id = $1`, userID.String()); err != nil {
		return fmt.Errorf("delete audit events: %w", err)
	}
	return nil
}
