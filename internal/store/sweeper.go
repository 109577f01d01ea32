package store

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 5 * time.Minute

// StartSweeper periodically removes idle sessions from backends that implement
// Sweeper. It returns immediately when kv expires keys on its own.
func StartSweeper(ctx context.Context, kv KV, ttl time.Duration) {
	startSweeper(ctx, kv, ttl, sweepInterval)
}

func startSweeper(ctx context.Context, kv KV, ttl, interval time.Duration) {
	sw, ok := kv.(Sweeper)
	if !ok || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				removed, err := sw.Sweep(ctx, ttl)
				if err != nil {
					slog.Error("Session sweeper failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("Session sweeper removed idle sessions", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
