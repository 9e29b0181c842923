package session

import (
	"context"
	"fmt"
	"time"

	pkgredis "github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/redis"
)

// RedisClient is the subset of pkg/redis used by RedisBackend
type RedisClient interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetDelBytes(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisBackend stores session entries in Redis. The connection is owned by the caller.
type RedisBackend struct {
	client RedisClient
}

// NewRedisBackend creates a new RedisBackend
func NewRedisBackend(client RedisClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.GetBytes(ctx, key)
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.SetBytes(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Take uses GETDEL so concurrent takers cannot both read the value
func (r *RedisBackend) Take(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.GetDelBytes(ctx, key)
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to take %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisBackend) Close() error { return nil }
