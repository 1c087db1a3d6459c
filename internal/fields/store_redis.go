package fields

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"citizenship/pkg/platform/sentinel"
)

const defaultRedisPrefix = "citizenship:fields:"

// RedisStore keeps one hash per (kind, name): entity -> value. A set per kind
// tracks which names exist so ClearEntity can sweep them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: defaultRedisPrefix}
}

func (s *RedisStore) hashKey(kind Kind, name string) string {
	return s.prefix + string(kind) + ":" + name
}

func (s *RedisStore) namesKey(kind Kind) string {
	return s.prefix + "names:" + string(kind)
}

func (s *RedisStore) All(ctx context.Context, kind Kind, name string) (map[string]string, error) {
	out, err := s.client.HGetAll(ctx, s.hashKey(kind, name)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s %s fields: %w", kind, name, err)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, ref Ref) (string, error) {
	v, err := s.client.HGet(ctx, s.hashKey(ref.Kind, ref.Name), ref.Entity).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read field %s: %w", ref.Name, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, ref Ref, value string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.hashKey(ref.Kind, ref.Name), ref.Entity, value)
		p.SAdd(ctx, s.namesKey(ref.Kind), ref.Name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write field %s: %w", ref.Name, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, ref Ref) error {
	if err := s.client.HDel(ctx, s.hashKey(ref.Kind, ref.Name), ref.Entity).Err(); err != nil {
		return fmt.Errorf("clear field %s: %w", ref.Name, err)
	}
	return nil
}

func (s *RedisStore) ClearEntity(ctx context.Context, kind Kind, entity string) error {
	names, err := s.client.SMembers(ctx, s.namesKey(kind)).Result()
	if err != nil {
		return fmt.Errorf("list %s field names: %w", kind, err)
	}
	if len(names) == 0 {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, name := range names {
			p.HDel(ctx, s.hashKey(kind, name), entity)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear %s %s: %w", kind, entity, err)
	}
	return nil
}
