package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aws-pricing-api/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("pricing", []float64{10, 1}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/services"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/services", "204")))
	require.Positive(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("pricing", nil, registry)
	second := obs.NewHTTPMetrics("pricing", nil, registry)
	first.ReqTotal.WithLabelValues(http.MethodGet, "/", "200").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(second.ReqTotal.WithLabelValues(http.MethodGet, "/", "200")))
}

func TestRouteLabelFromChi(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("pricing", nil, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/services/{serviceCode}/attributes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/services/AmazonEC2/attributes", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/services/{serviceCode}/attributes", "200")))
}

func TestRequestLoggerAttachesScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var fromCtx *zerolog.Logger
	handler := middleware.RequestID(obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, fromCtx)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "warn", entry["level"])
	require.EqualValues(t, 404, entry["status"])
	require.NotEmpty(t, entry["request_id"])
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := obs.NewStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	_, err := rec.Write([]byte("ok"))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, rec.Status())
	require.EqualValues(t, 2, rec.BytesWritten())
}

func TestDomainMetricsObservers(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("pricing_test", registry)

	obs.ObserveCatalogCall("GetProducts", "ok", 15*time.Millisecond)
	obs.ObserveCacheLookup("products", "hit")
	obs.ObserveBatchResources(2, 1)

	require.Equal(t, float64(1), testutil.ToFloat64(obs.CatalogRequestsTotal.WithLabelValues("GetProducts", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.CatalogCacheTotal.WithLabelValues("products", "hit")))
	require.Equal(t, float64(2), testutil.ToFloat64(obs.BatchResourcesTotal.WithLabelValues("priced")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.BatchResourcesTotal.WithLabelValues("skipped")))
}
