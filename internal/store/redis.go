package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach Redis.
type RedisConfig struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// NewRedisClient parses the URL, applies timeouts and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStore implements KV on Redis strings. Keys expire after ttl of inactivity.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
	// closer is set when the store owns the client.
	closer interface{ Close() error }
}

// NewRedis wraps an existing client. A ttl of zero keeps keys forever.
func NewRedis(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	s := &RedisStore{rdb: rdb, ttl: ttl}
	if c, ok := rdb.(interface{ Close() error }); ok {
		s.closer = c
	}
	return s
}

func (r *RedisStore) sessionKey(key string) string {
	return fmt.Sprintf("chat:%s:session", key)
}

// Get reads the value under key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k := r.sessionKey(key)
	b, err := r.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		slog.Error("failed to load chat session from redis", "key", k, "error", err)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

// Set stores value and refreshes the TTL.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	k := r.sessionKey(key)
	if err := r.rdb.Set(ctx, k, value, r.ttl).Err(); err != nil {
		slog.Error("failed to store chat session in redis", "key", k, "error", err)
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	k := r.sessionKey(key)
	if err := r.rdb.Del(ctx, k).Err(); err != nil {
		slog.Error("failed to delete chat session from redis", "key", k, "error", err)
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the client if the store owns one.
func (r *RedisStore) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

var _ KV = (*RedisStore)(nil)
