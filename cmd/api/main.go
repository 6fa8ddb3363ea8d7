package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/aws-pricing-api/internal/app"
	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/config"
	"github.com/noah-isme/aws-pricing-api/internal/docs"
	"github.com/noah-isme/aws-pricing-api/internal/health"
	"github.com/noah-isme/aws-pricing-api/internal/obs"
	"github.com/noah-isme/aws-pricing-api/internal/pricing"
	"github.com/noah-isme/aws-pricing-api/internal/ratelimit"
	"github.com/noah-isme/aws-pricing-api/internal/resilience"
	"github.com/noah-isme/aws-pricing-api/internal/security"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "api").Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pricing")
	if metricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, prometheus.DefaultRegisterer)
		if err := resilience.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			logger.Fatal().Err(err).Msg("register resilience metrics")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:    envOrDefault("OBS_SERVICE_NAME", "aws-pricing-api"),
			ServiceVersion: serviceVersion,
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  envFloat("OBS_TRACING_SAMPLING_RATIO", 1),
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("init tracer")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if !cfg.RedisEnabled() {
		logger.Warn().Msg("REDIS_URL not set, catalog caching disabled and rate limits kept in memory")
	}

	docsHandler, err := docs.NewHandler(docs.DefaultIndex(serviceVersion))
	if err != nil {
		logger.Fatal().Err(err).Msg("load filter documentation")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Source: deps.Catalog})
	pricingHandler := pricing.NewHandler(pricing.HandlerConfig{
		Calculator:   deps.Calculator(),
		Validator:    deps.Validator,
		MaxResources: cfg.CalculateMaxResources,
	})
	healthHandler := health.Handler{Checker: deps.HealthChecker(), RedisTimeout: envDurationMillis("HEALTH_REDIS_TIMEOUT_MS", 500)}
	rateLimiter := ratelimit.Handler{
		Store:  deps.RateLimitStore(),
		Config: ratelimit.Config{Key: ratelimit.ClientKey, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		Logger: logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Resources-Skipped", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{
		Enable:                cfg.SecurityHeadersEnabled,
		EnableHSTS:            envBool("SECURITY_HSTS_ENABLED", cfg.AppEnv == "production"),
		HSTSMaxAge:            envInt("SECURITY_HSTS_MAX_AGE", 31536000),
		HSTSIncludeSubdomains: envBool("SECURITY_HSTS_INCLUDE_SUBDOMAINS", true),
	}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := os.Getenv("SECURE_PPROF_BASIC_AUTH_USER")
		pass := os.Getenv("SECURE_PPROF_BASIC_AUTH_PASS")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	r.Get("/", docsHandler.Index)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Use(security.BodyLimit{Max: cfg.HTTPMaxBodyBytes}.Middleware)
		api.Use(rateLimiter.Middleware)

		api.Get("/services", catalogHandler.Services)
		api.Get("/services/{serviceCode}/attributes", catalogHandler.Attributes)
		api.Get("/services/{serviceCode}/attributes/{attributeName}/values", catalogHandler.AttributeValues)
		api.Post("/pricing", pricingHandler.Price)
		api.Post("/calculate", pricingHandler.Calculate)
		api.Get("/filter-documentation", docsHandler.FilterDocumentation)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("region", cfg.AWSRegion).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	logger.Info().Msg("server shutdown complete")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
