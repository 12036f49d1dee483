package cache

import (
	"context"
	"fmt"

	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the store for event handlers. Redis is used when
// reachable. Otherwise the in-memory store is returned if the config allows it.
func NewIdempotencyStore(ctx context.Context, redisCfg config.RedisConfig, cfg config.IdempotencyConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if redisCfg.Host == "" {
		logger.Info("Redis not configured, using in-memory idempotency store")
		return NewMemoryStore(), nil
	}

	store, err := NewRedisStore(ctx, redisCfg)
	if err == nil {
		logger.Info("Using Redis idempotency store",
			zap.String("addr", fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port)),
		)
		return store, nil
	}
	if !cfg.RedisFallback {
		return nil, fmt.Errorf("idempotency store: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}
