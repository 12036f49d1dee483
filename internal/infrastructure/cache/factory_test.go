package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	// Nothing listens on port 1
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("no redis host uses memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, config.RedisConfig{}, config.IdempotencyConfig{}, zap.NewNop())
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("falls back when allowed", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachable, config.IdempotencyConfig{RedisFallback: true}, nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("fails when fallback disabled", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachable, config.IdempotencyConfig{RedisFallback: false}, nil)
		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "idempotency store")
	})
}
