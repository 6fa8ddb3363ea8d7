package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/aws-pricing-api/internal/app"
	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/config"
	"github.com/noah-isme/aws-pricing-api/internal/obs"
	"github.com/noah-isme/aws-pricing-api/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "pricing"), prometheus.DefaultRegisterer)
	if err := resilience.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal().Err(err).Msg("register resilience metrics")
	}

	if !cfg.RedisEnabled() {
		logger.Error().Msg("REDIS_URL is required to run the cache warmer")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	warmer, err := deps.Warmer()
	if err != nil {
		logger.Fatal().Err(err).Msg("init warmer")
	}

	logger.Info().
		Dur("interval", cfg.WarmerInterval).
		Strs("services", cfg.WarmerServices).
		Msg("worker starting")
	if err := warmer.Run(ctx, cfg.WarmerInterval); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, catalog.ErrCachingDisabled) {
			logger.Error().Err(err).Msg("catalog cache unavailable")
		} else {
			logger.Error().Err(err).Msg("worker stopped with error")
		}
		return
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
