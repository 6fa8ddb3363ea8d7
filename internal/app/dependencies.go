package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/common"
	"github.com/noah-isme/aws-pricing-api/internal/config"
	"github.com/noah-isme/aws-pricing-api/internal/health"
	"github.com/noah-isme/aws-pricing-api/internal/lock"
	"github.com/noah-isme/aws-pricing-api/internal/pricing"
	"github.com/noah-isme/aws-pricing-api/internal/ratelimit"
	"github.com/noah-isme/aws-pricing-api/internal/resilience"
)

// BreakerTarget labels the Price List API in breaker telemetry.
const BreakerTarget = "aws-pricing"

// Dependencies enumerates the services shared by the API server, the cache
// warmer and the operator CLI.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Redis     *redis.Client
	Breaker   *resilience.Breaker
	Upstream  catalog.Source
	Catalog   *catalog.CachedSource
	Validator *validator.Validate
	Locker    *lock.Locker
}

// New builds the shared dependencies from cfg. Redis is optional: without
// REDIS_URL the catalog is uncached and rate limits are kept in memory.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor).
		WithTarget(BreakerTarget).
		WithLogger(logger)

	upstream, err := catalog.NewAWSClient(ctx, catalog.AWSOptions{
		Region:            cfg.AWSRegion,
		Profile:           cfg.AWSProfile,
		Endpoint:          cfg.AWSPricingEndpoint,
		AccessKeyID:       cfg.AWSAccessKeyID,
		SecretAccessKey:   cfg.AWSSecretAccessKey,
		SessionToken:      cfg.AWSSessionToken,
		PageSize:          int32(cfg.CatalogPageSize),
		RequestsPerSecond: cfg.CatalogRequestsPerSecond,
		Burst:             cfg.CatalogBurst,
		RequestTimeout:    cfg.CatalogRequestTimeout,
		Retry:             RetryPolicy(cfg, breaker),
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	return NewWithSource(ctx, cfg, logger, upstream, breaker)
}

// NewWithSource is New with an explicit upstream catalog source.
func NewWithSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger, upstream catalog.Source, breaker *resilience.Breaker) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Breaker:   breaker,
		Upstream:  upstream,
		Validator: common.NewValidator(),
	}
	if cfg.RedisEnabled() {
		client, err := NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
		deps.Locker = lock.New(client, 0)
	}
	deps.Catalog = catalog.NewCachedSource(catalog.CachedSourceConfig{
		Source:      upstream,
		Cache:       catalog.NewCache(deps.Redis),
		ListingTTL:  cfg.CatalogCacheTTL,
		ProductsTTL: cfg.ProductsCacheTTL,
		Logger:      logger,
	})
	return deps, nil
}

// RetryPolicy derives the catalog retry policy from cfg.
func RetryPolicy(cfg *config.Config, breaker *resilience.Breaker) resilience.Policy {
	return resilience.Policy{
		Breaker:     breaker,
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseBackoff: cfg.RetryBase,
		Jitter:      cfg.RetryJitterPercent,
		Retryable:   catalog.IsRetryable,
	}
}

// NewRedis connects to url, instruments the client and verifies it with a ping.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis metrics: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Calculator builds the pricing calculator over the cached catalog.
func (d *Dependencies) Calculator() *pricing.Calculator {
	return pricing.NewCalculator(pricing.CalculatorConfig{
		Catalog:     d.Catalog,
		Logger:      d.Logger,
		Concurrency: d.Config.CalculateConcurrency,
	})
}

// Warmer builds the cache warmer. It fails with catalog.ErrCachingDisabled
// when Redis is not configured.
func (d *Dependencies) Warmer() (*catalog.Warmer, error) {
	if d.Redis == nil || d.Locker == nil {
		return nil, catalog.ErrCachingDisabled
	}
	return catalog.NewWarmer(catalog.WarmerConfig{
		Source:   d.Catalog,
		Locker:   d.Locker,
		Services: d.Config.WarmerServices,
		LockTTL:  d.Config.WarmerLockTTL,
		Logger:   d.Logger.With().Str("component", "warmer").Logger(),
	}), nil
}

// RateLimitStore returns the Redis sliding window when Redis is configured
// and an in-process store otherwise.
func (d *Dependencies) RateLimitStore() ratelimit.Store {
	if d.Redis != nil {
		return ratelimit.NewSlidingWindow(d.Redis, "ratelimit")
	}
	return ratelimit.NewMemoryStore("ratelimit")
}

// HealthChecker probes the live dependencies for readiness.
func (d *Dependencies) HealthChecker() health.Dependencies {
	return health.Dependencies{Redis: d.Redis, Breaker: d.Breaker}
}

// Close releases the Redis connection pool.
func (d *Dependencies) Close() error {
	if d.Redis == nil {
		return nil
	}
	err := d.Redis.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
