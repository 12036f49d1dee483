package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which keys have already been handled
type IdempotencyStore interface {
	// MarkProcessed marks a key with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key is present
	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}

// IdempotencyConfig controls duplicate suppression for event handlers
type IdempotencyConfig struct {
	// TTL after which the same key may be processed again
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h, enabled configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
