package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mazleon/portfolio-website/internal/config"
)

// Open builds the backend selected by QUOTA_STORE.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.Quota.Store {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Quota.SessionDir)
	case "sqlite":
		return NewSQLite(cfg.Quota.DBPath)
	case "redis":
		client, err := NewRedisClient(ctx, RedisConfig{
			URL:          cfg.Redis.URL,
			ReadTimeout:  time.Duration(cfg.Redis.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Redis.WriteTimeout) * time.Second,
			DialTimeout:  time.Duration(cfg.Redis.DialTimeout) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Connected to redis session store")
		return NewRedis(client, cfg.Quota.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Quota.Store)
	}
}
