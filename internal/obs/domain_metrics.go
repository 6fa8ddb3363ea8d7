package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CatalogRequestsTotal counts Price List API calls by operation and outcome.
	CatalogRequestsTotal *prometheus.CounterVec
	// CatalogRequestDuration records Price List API latency in milliseconds.
	CatalogRequestDuration *prometheus.HistogramVec
	// CatalogCacheTotal counts catalog cache lookups by outcome.
	CatalogCacheTotal *prometheus.CounterVec
	// PricingCalculationsTotal counts single and batch calculations by outcome.
	PricingCalculationsTotal *prometheus.CounterVec
	// BatchResourcesTotal counts resources priced or skipped inside batches.
	BatchResourcesTotal *prometheus.CounterVec
	// WarmerRunsTotal counts cache warmer passes by outcome.
	WarmerRunsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CatalogRequestsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Count of pricing catalog API calls by operation and result.",
		}, []string{"operation", "result"}))
		CatalogRequestDuration = registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_request_duration_ms",
			Help:      "Latency of pricing catalog API calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"}))
		CatalogCacheTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog cache lookups by operation and result.",
		}, []string{"operation", "result"}))
		PricingCalculationsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_calculations_total",
			Help:      "Count of price calculations by kind and result.",
		}, []string{"kind", "result"}))
		BatchResourcesTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_batch_resources_total",
			Help:      "Count of resources priced or skipped during batch calculations.",
		}, []string{"result"}))
		WarmerRunsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_warmer_runs_total",
			Help:      "Count of catalog cache warmer passes by result.",
		}, []string{"result"}))
	})
}

// ObserveCatalogCall records one catalog API call. It is a no-op until the
// domain metrics are registered.
func ObserveCatalogCall(operation, result string, elapsed time.Duration) {
	if CatalogRequestsTotal != nil {
		CatalogRequestsTotal.WithLabelValues(operation, result).Inc()
	}
	if CatalogRequestDuration != nil {
		CatalogRequestDuration.WithLabelValues(operation).Observe(DurationMillis(elapsed))
	}
}

// ObserveCacheLookup records a catalog cache hit, miss or error.
func ObserveCacheLookup(operation, result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(operation, result).Inc()
	}
}

// ObserveCalculation records the outcome of a price or batch calculation.
func ObserveCalculation(kind, result string) {
	if PricingCalculationsTotal != nil {
		PricingCalculationsTotal.WithLabelValues(kind, result).Inc()
	}
}

// ObserveBatchResources adds priced and skipped resource counts.
func ObserveBatchResources(priced, skipped int) {
	if BatchResourcesTotal == nil {
		return
	}
	if priced > 0 {
		BatchResourcesTotal.WithLabelValues("priced").Add(float64(priced))
	}
	if skipped > 0 {
		BatchResourcesTotal.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// ObserveWarmerRun records a cache warmer pass.
func ObserveWarmerRun(result string) {
	if WarmerRunsTotal != nil {
		WarmerRunsTotal.WithLabelValues(result).Inc()
	}
}
