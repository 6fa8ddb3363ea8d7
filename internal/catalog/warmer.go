package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/aws-pricing-api/internal/lock"
	"github.com/noah-isme/aws-pricing-api/internal/obs"
)

// WarmLockKey guards warmer passes across processes.
const WarmLockKey = "catalog:warm"

// ErrCachingDisabled is returned by the warmer when no Redis cache is configured.
var ErrCachingDisabled = errors.New("catalog: caching disabled, nothing to warm")

// Locker runs a callback while holding a named lock, failing fast when the
// lock is held elsewhere.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// WarmReport summarises one warmer pass. Attributes and Values count the
// entries written to the cache, not the listings requested.
type WarmReport struct {
	Services   int      `json:"services"`
	Attributes int      `json:"attributes"`
	Values     int      `json:"values"`
	Errors     []string `json:"errors,omitempty"`
	Skipped    bool     `json:"skipped,omitempty"`
}

// Warmer refreshes the catalog listings held in the cache.
type Warmer struct {
	source   *CachedSource
	locker   Locker
	services []string
	lockTTL  time.Duration
	logger   zerolog.Logger
}

// WarmerConfig groups Warmer dependencies.
type WarmerConfig struct {
	Source   *CachedSource
	Locker   Locker
	Services []string
	LockTTL  time.Duration
	Logger   zerolog.Logger
}

// NewWarmer constructs a Warmer.
func NewWarmer(cfg WarmerConfig) *Warmer {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Warmer{
		source:   cfg.Source,
		locker:   cfg.Locker,
		services: cfg.Services,
		lockTTL:  ttl,
		logger:   cfg.Logger,
	}
}

// RunOnce refreshes the services listing and, for every configured service,
// its attribute names and each attribute's values. A pass already running in
// another process yields a skipped report.
func (w *Warmer) RunOnce(ctx context.Context) (WarmReport, error) {
	var report WarmReport
	if w.source == nil || !w.source.cache.Enabled() {
		obs.ObserveWarmerRun("disabled")
		return report, ErrCachingDisabled
	}
	if w.locker == nil {
		return report, errors.New("catalog: warmer lock not configured")
	}

	start := time.Now()
	err := w.locker.TryWithLock(ctx, WarmLockKey, w.lockTTL, func(ctx context.Context) error {
		var err error
		report, err = w.warm(ctx)
		return err
	})
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		obs.ObserveWarmerRun("skipped")
		w.logger.Info().Msg("catalog_warm_skipped")
		return WarmReport{Skipped: true}, nil
	case err != nil:
		obs.ObserveWarmerRun("error")
		return report, err
	}

	result := "ok"
	if len(report.Errors) > 0 {
		result = "partial"
	}
	obs.ObserveWarmerRun(result)
	w.logger.Info().
		Int("services", report.Services).
		Int("attributes", report.Attributes).
		Int("values", report.Values).
		Int("errors", len(report.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("catalog_warm_completed")
	return report, nil
}

func (w *Warmer) warm(ctx context.Context) (WarmReport, error) {
	var report WarmReport
	services, err := w.source.refreshServices(ctx)
	if err != nil {
		return report, fmt.Errorf("warm services: %w", err)
	}
	report.Services = len(services)

	for _, svc := range w.services {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		attrs, err := w.source.refreshAttributes(ctx, svc)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", svc, err))
			w.logger.Warn().Err(err).Str("service_code", svc).Msg("catalog_warm_attributes_failed")
			continue
		}
		report.Attributes += len(attrs)
		for _, attr := range attrs {
			values, err := w.source.refreshValues(ctx, svc, attr)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s/%s: %v", svc, attr, err))
				w.logger.Warn().Err(err).Str("service_code", svc).Str("attribute", attr).Msg("catalog_warm_values_failed")
				continue
			}
			report.Values += len(values)
		}
	}
	return report, nil
}

// Run executes RunOnce immediately and then every interval until ctx is
// cancelled. Pass errors are logged and do not stop the loop.
func (w *Warmer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, ErrCachingDisabled) {
				return err
			}
			if ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("catalog_warm_failed")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
