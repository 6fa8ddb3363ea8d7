package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	defaultPort          = "7777"
	defaultPricingRegion = "us-east-1"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	AWSRegion          string
	AWSProfile         string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	AWSPricingEndpoint string

	CatalogPageSize          int
	CatalogRequestsPerSecond float64
	CatalogBurst             int
	CatalogRequestTimeout    time.Duration
	CatalogCacheTTL          time.Duration
	ProductsCacheTTL         time.Duration

	RetryMaxAttempts   int
	RetryBase          time.Duration
	RetryJitterPercent float64

	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration

	CalculateConcurrency  int
	CalculateMaxResources int

	RateLimitMax    int
	RateLimitWindow time.Duration

	HTTPMaxBodyBytes       int64
	HTTPReadTimeout        time.Duration
	HTTPWriteTimeout       time.Duration
	HTTPShutdownTimeout    time.Duration
	SecurityHeadersEnabled bool

	WarmerInterval time.Duration
	WarmerServices []string
	WarmerLockTTL  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), defaultPort),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AWSRegion:          valueOrDefault(k.String("AWS_PRICING_REGION"), defaultPricingRegion),
		AWSProfile:         strings.TrimSpace(k.String("AWS_PROFILE")),
		AWSAccessKeyID:     strings.TrimSpace(k.String("AWS_ACCESS_KEY_ID")),
		AWSSecretAccessKey: strings.TrimSpace(k.String("AWS_SECRET_ACCESS_KEY")),
		AWSSessionToken:    strings.TrimSpace(k.String("AWS_SESSION_TOKEN")),
		AWSPricingEndpoint: strings.TrimSpace(k.String("AWS_PRICING_ENDPOINT")),

		CatalogPageSize:          parseInt(k.String("CATALOG_PAGE_SIZE"), 100),
		CatalogRequestsPerSecond: parseFloat(k.String("CATALOG_REQUESTS_PER_SECOND"), 5),
		CatalogBurst:             parseInt(k.String("CATALOG_BURST"), 5),
		CatalogRequestTimeout:    parseDuration(k.String("CATALOG_REQUEST_TIMEOUT"), "30s"),
		CatalogCacheTTL:          parseDuration(k.String("CATALOG_CACHE_TTL"), "6h"),
		ProductsCacheTTL:         parseDuration(k.String("CATALOG_PRODUCTS_CACHE_TTL"), "1h"),

		RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryJitterPercent: parseFloat(k.String("RETRY_JITTER_PERCENT"), 0.2),

		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		CalculateConcurrency:  parseInt(k.String("CALCULATE_CONCURRENCY"), 4),
		CalculateMaxResources: parseInt(k.String("CALCULATE_MAX_RESOURCES"), 100),

		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),

		HTTPMaxBodyBytes:       int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
		HTTPReadTimeout:        parseDuration(k.String("HTTP_READ_TIMEOUT"), "15s"),
		HTTPWriteTimeout:       parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "60s"),
		HTTPShutdownTimeout:    parseDuration(k.String("HTTP_SHUTDOWN_TIMEOUT"), "20s"),
		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),

		WarmerInterval: parseDuration(k.String("WARMER_INTERVAL"), "6h"),
		WarmerServices: splitAndTrim(valueOrDefault(k.String("WARMER_SERVICES"), "AmazonEC2,AmazonRDS,AmazonS3")),
		WarmerLockTTL:  parseDuration(k.String("WARMER_LOCK_TTL"), "10m"),
	}

	if _, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(cfg.Port), ":")); err != nil {
		return nil, fmt.Errorf("PORT must be numeric: %q", cfg.Port)
	}
	if cfg.CircuitFailureRatio <= 0 || cfg.CircuitFailureRatio > 1 {
		return nil, fmt.Errorf("CIRCUIT_FAILURE_RATIO must be within (0, 1]: %v", cfg.CircuitFailureRatio)
	}
	if cfg.CalculateConcurrency < 1 {
		cfg.CalculateConcurrency = 1
	}
	if cfg.CatalogPageSize < 1 || cfg.CatalogPageSize > 100 {
		cfg.CatalogPageSize = 100
	}
	if cfg.RetryMaxAttempts < 1 {
		cfg.RetryMaxAttempts = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// RedisEnabled reports whether a Redis URL was configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}

// StaticCredentials reports whether explicit AWS keys were supplied.
func (c *Config) StaticCredentials() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil || d < 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
