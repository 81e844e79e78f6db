package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/config"
)

const redisConnectTimeout = 3 * time.Second

// NewKV opens the configured backend. If it cannot be opened, NewKV logs a
// warning and returns an in-memory store with persistent=false; it never
// fails.
func NewKV(ctx context.Context, cfg config.StorageConfig, logger *zap.SugaredLogger) (kv KV, persistent bool) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryKV(), false

	case "redis":
		ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
		defer cancel()
		store, err := NewRedisKV(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			logger.Warnw("Redis storage unavailable, falling back to in-memory store", "error", err)
			return NewMemoryKV(), false
		}
		return store, true

	default:
		if cfg.DBPath == "" {
			return NewMemoryKV(), false
		}
		store, err := NewSQLiteKV(config.ExpandTilde(cfg.DBPath))
		if err != nil {
			logger.Warnw("SQLite storage unavailable, falling back to in-memory store", "error", err)
			return NewMemoryKV(), false
		}
		return store, true
	}
}
