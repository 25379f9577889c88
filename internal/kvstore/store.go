package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is a durable string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// RedisStore keeps values in Redis without expiry. Every key is written
// under prefix.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Scoped returns a store sharing the client whose keys live under an extra
// namespace, e.g. one per user.
func (s *RedisStore) Scoped(namespace string) *RedisStore {
	return &RedisStore{client: s.client, prefix: s.key(namespace) + ":"}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}
