package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/aws-pricing-api/internal/common"
)

// CodeRateLimited is the error code of throttled requests.
const CodeRateLimited = "RATE_LIMITED"

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// ClientKey keys requests by client IP.
func ClientKey(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// Handler enforces rate limits before delegating to the next handler. Store
// failures are logged and the request proceeds.
type Handler struct {
	Store  Store
	Config Config
	Logger zerolog.Logger
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Store == nil || h.Config.Max <= 0 || h.Config.Window <= 0 {
		return next
	}
	keyFn := h.Config.Key
	if keyFn == nil {
		keyFn = ClientKey
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := h.Store.Allow(r.Context(), keyFn(r), h.Config.Window, h.Config.Max)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("rate_limit_store_failed")
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Config.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
