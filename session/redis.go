package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when Redis cannot serve a storage call.
var ErrRedisUnavailable = fmt.Errorf("%w: redis", ErrStorageUnavailable)

// RedisStorage keeps values in Redis under prefix + ":" + key. It lets several
// client processes on one device (or one kiosk fleet) share a session.
type RedisStorage struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a Redis-backed [Storage]. A zero ttl keeps values
// until they are deleted.
//
//	Performance: one Redis command per call.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = "eduauth"
	}
	return &RedisStorage{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStorage) key(key string) string {
	return r.prefix + ":" + key
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
