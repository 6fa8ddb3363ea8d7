package catalog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/aws-pricing-api/internal/obs"
)

const keyPrefix = "catalog:"

// CachedSource decorates a Source with a Redis JSON cache. Cache failures are
// logged and fall through to the wrapped source.
type CachedSource struct {
	next        Source
	cache       *Cache
	listingTTL  time.Duration
	productsTTL time.Duration
	logger      zerolog.Logger
}

// CachedSourceConfig groups CachedSource dependencies.
type CachedSourceConfig struct {
	Source      Source
	Cache       *Cache
	ListingTTL  time.Duration
	ProductsTTL time.Duration
	Logger      zerolog.Logger
}

// NewCachedSource constructs a caching decorator around cfg.Source.
func NewCachedSource(cfg CachedSourceConfig) *CachedSource {
	listingTTL := cfg.ListingTTL
	if listingTTL <= 0 {
		listingTTL = 6 * time.Hour
	}
	productsTTL := cfg.ProductsTTL
	if productsTTL <= 0 {
		productsTTL = time.Hour
	}
	return &CachedSource{
		next:        cfg.Source,
		cache:       cfg.Cache,
		listingTTL:  listingTTL,
		productsTTL: productsTTL,
		logger:      cfg.Logger,
	}
}

// ServicesKey is the cache key of the services listing.
func ServicesKey() string { return keyPrefix + "services" }

// AttributesKey is the cache key of a service's attribute names.
func AttributesKey(serviceCode string) string {
	return keyPrefix + "attributes:" + serviceCode
}

// ValuesKey is the cache key of an attribute's values.
func ValuesKey(serviceCode, attributeName string) string {
	return keyPrefix + "values:" + serviceCode + ":" + attributeName
}

// ProductsKey is the cache key of a product query. Filter order does not
// change the key.
func ProductsKey(serviceCode string, filters []Filter) string {
	return keyPrefix + "products:" + serviceCode + ":" + FiltersDigest(filters)
}

// ListServices implements Source.
func (s *CachedSource) ListServices(ctx context.Context) ([]Service, error) {
	return cached(ctx, s, "services", ServicesKey(), s.listingTTL, func(ctx context.Context) ([]Service, error) {
		return s.next.ListServices(ctx)
	})
}

// ListAttributes implements Source.
func (s *CachedSource) ListAttributes(ctx context.Context, serviceCode string) ([]string, error) {
	return cached(ctx, s, "attributes", AttributesKey(serviceCode), s.listingTTL, func(ctx context.Context) ([]string, error) {
		return s.next.ListAttributes(ctx, serviceCode)
	})
}

// ListAttributeValues implements Source.
func (s *CachedSource) ListAttributeValues(ctx context.Context, serviceCode, attributeName string) ([]string, error) {
	return cached(ctx, s, "values", ValuesKey(serviceCode, attributeName), s.listingTTL, func(ctx context.Context) ([]string, error) {
		return s.next.ListAttributeValues(ctx, serviceCode, attributeName)
	})
}

// FindProducts implements Source.
func (s *CachedSource) FindProducts(ctx context.Context, serviceCode string, filters []Filter) ([]Product, error) {
	return cached(ctx, s, "products", ProductsKey(serviceCode, filters), s.productsTTL, func(ctx context.Context) ([]Product, error) {
		return s.next.FindProducts(ctx, serviceCode, filters)
	})
}

// refreshServices bypasses the cache read and stores a fresh listing.
func (s *CachedSource) refreshServices(ctx context.Context) ([]Service, error) {
	return refresh(ctx, s, "services", ServicesKey(), s.listingTTL, s.next.ListServices)
}

func (s *CachedSource) refreshAttributes(ctx context.Context, serviceCode string) ([]string, error) {
	return refresh(ctx, s, "attributes", AttributesKey(serviceCode), s.listingTTL, func(ctx context.Context) ([]string, error) {
		return s.next.ListAttributes(ctx, serviceCode)
	})
}

func (s *CachedSource) refreshValues(ctx context.Context, serviceCode, attributeName string) ([]string, error) {
	return refresh(ctx, s, "values", ValuesKey(serviceCode, attributeName), s.listingTTL, func(ctx context.Context) ([]string, error) {
		return s.next.ListAttributeValues(ctx, serviceCode, attributeName)
	})
}

func cached[T any](ctx context.Context, s *CachedSource, operation, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if s.cache.Enabled() {
		var hit T
		found, err := s.cache.GetJSON(ctx, key, &hit)
		switch {
		case err != nil:
			obs.ObserveCacheLookup(operation, "error")
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_read_failed")
		case found:
			obs.ObserveCacheLookup(operation, "hit")
			return hit, nil
		default:
			obs.ObserveCacheLookup(operation, "miss")
		}
	}
	return refresh(ctx, s, operation, key, ttl, load)
}

func refresh[T any](ctx context.Context, s *CachedSource, operation, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := s.cache.SetJSON(ctx, key, value, ttl); err != nil {
		obs.ObserveCacheLookup(operation, "error")
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
	return value, nil
}
