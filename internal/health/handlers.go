package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrNotConfigured is returned by probes for optional dependencies that are
// not part of the deployment.
var ErrNotConfigured = errors.New("not configured")

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles process readiness. The server flips it off when graceful
// shutdown begins so load balancers drain the instance.
func SetReady(v bool) { ready.Store(v) }

// IsReady reports process readiness.
func IsReady() bool { return ready.Load() }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	CatalogState() string
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. Redis is probed when configured; the catalog
// breaker state is reported but does not fail the probe, since every
// instance shares the same upstream.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if h.Checker == nil {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}
	redisStatus := "ok"
	if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			redisStatus = "disabled"
		} else {
			redisStatus = err.Error()
		}
	}
	status := map[string]string{
		"status":  "ok",
		"redis":   redisStatus,
		"catalog": h.Checker.CatalogState(),
	}
	code := http.StatusOK
	if redisStatus != "ok" && redisStatus != "disabled" {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeStatus(w, code, status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func writeStatus(w http.ResponseWriter, code int, status map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
