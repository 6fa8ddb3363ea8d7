package ratelimit

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	for name, store := range map[string]Store{
		"redis":  NewSlidingWindow(client, "ratelimit:"),
		"memory": NewMemoryStore("ratelimit:"),
	} {
		t.Run(name, func(t *testing.T) {
			counted := Handler{
				Store:  store,
				Config: Config{Window: time.Minute, Max: 1},
			}.Middleware(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/pricing", nil)
			req.RemoteAddr = "10.0.0.1:4321"
			rr1 := httptest.NewRecorder()
			counted.ServeHTTP(rr1, req.Clone(req.Context()))
			if rr1.Code != http.StatusOK {
				t.Fatalf("expected first request allowed, got %d", rr1.Code)
			}

			rr2 := httptest.NewRecorder()
			counted.ServeHTTP(rr2, req.Clone(req.Context()))
			if rr2.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429 on second request, got %d", rr2.Code)
			}
			if rr2.Header().Get("X-RateLimit-Limit") != "1" {
				t.Fatalf("unexpected limit header: %q", rr2.Header().Get("X-RateLimit-Limit"))
			}
			if rr2.Header().Get("Retry-After") == "" {
				t.Fatal("expected Retry-After header")
			}
			if !strings.Contains(rr2.Body.String(), CodeRateLimited) {
				t.Fatalf("unexpected body %q", rr2.Body.String())
			}

			other := req.Clone(req.Context())
			other.RemoteAddr = "10.0.0.2:4321"
			rr3 := httptest.NewRecorder()
			counted.ServeHTTP(rr3, other)
			if rr3.Code != http.StatusOK {
				t.Fatalf("expected other client allowed, got %d", rr3.Code)
			}
		})
	}
}

func TestHandlerMiddlewareStoreFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	defer func() { _ = client.Close() }()

	var logs bytes.Buffer
	counted := Handler{
		Store:  NewSlidingWindow(client, "ratelimit:"),
		Config: Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		Logger: zerolog.New(&logs),
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected handler to proceed on error, got %d", rr.Code)
	}
	if !strings.Contains(logs.String(), "rate_limit_store_failed") {
		t.Fatalf("expected store failure to be logged, got %q", logs.String())
	}
}

func TestHandlerMiddlewareDisabled(t *testing.T) {
	next := okHandler()
	mw := Handler{Store: NewMemoryStore("x:"), Config: Config{Max: 0, Window: time.Second}}.Middleware(next)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatal("limit 0 must disable the middleware")
	}
}
