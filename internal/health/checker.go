package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/aws-pricing-api/internal/resilience"
)

// Dependencies probes the process's live dependencies.
type Dependencies struct {
	Redis   *redis.Client
	Breaker *resilience.Breaker
}

// PingRedis implements Checker.
func (d Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// CatalogState implements Checker.
func (d Dependencies) CatalogState() string {
	if d.Breaker == nil {
		return "unknown"
	}
	return d.Breaker.State().String()
}
