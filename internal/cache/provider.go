package cache

// Package cache provides caching for computed dashboard metrics.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

// Provider defines the interface for caching serialized metric snapshots
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// MetricsKey names the cached dashboard snapshot for one user in one role.
// A user acting as both customer and artisan gets two independent entries.
func MetricsKey(role models.Role, userID uuid.UUID) string {
	return fmt.Sprintf("metrics:%s:%s", role, userID)
}
