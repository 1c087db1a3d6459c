package main

import (
	"context"
	"fmt"
	"log/slog"

	"citizenship/internal/audit"
	"citizenship/internal/fields"
	"citizenship/internal/ops"
	"citizenship/internal/platform/config"
	"citizenship/internal/platform/postgres"
	"citizenship/internal/platform/redis"
)

// stores bundles the persistence chosen by the backend setting.
type stores struct {
	fields fields.Store
	audit  audit.Store
	checks map[string]ops.Check
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		log.WarnContext(ctx, "using in-memory field store; claims are lost on restart")
		return &stores{
			fields: fields.NewInMemoryStore(),
			audit:  audit.NewInMemoryStore(),
			checks: map[string]ops.Check{},
			close:  func() {},
		}, nil

	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("redis backend selected but REDIS_URL is empty")
		}
		return &stores{
			fields: fields.NewRedisStore(client.Client),
			audit:  audit.NewInMemoryStore(),
			checks: map[string]ops.Check{"redis": client.Health},
			close:  func() { _ = client.Close() },
		}, nil

	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, fmt.Errorf("postgres backend selected but DATABASE_URL is empty")
		}
		fieldStore := fields.NewPostgresStore(pool)
		auditStore := audit.NewPostgresStore(pool)
		if err := fieldStore.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("field schema: %w", err)
		}
		if err := auditStore.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("audit schema: %w", err)
		}
		return &stores{
			fields: fieldStore,
			audit:  auditStore,
			checks: map[string]ops.Check{"postgres": pool.Ping},
			close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
