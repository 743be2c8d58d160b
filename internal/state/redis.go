// internal/state/redis.go
package state

import (
	"context"
	"time"

	"bookings-bot/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores each document as a string value under prefix:key.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage returns a storage backed by client. A zero ttl keeps documents
// forever; otherwise every write refreshes the expiry.
func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStorage) Read(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	values, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, errors.NewStateStorageFailedError("redis.read", err)
	}
	for i, v := range values {
		if str, ok := v.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out, nil
}

func (s *RedisStorage) Write(ctx context.Context, changes map[string][]byte) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range changes {
			pipe.Set(ctx, s.key(k), v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.NewStateStorageFailedError("redis.write", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return errors.NewStateStorageFailedError("redis.delete", err)
	}
	return nil
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
