package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryStore is a per-process fixed-window store used when Redis is not
// configured.
type MemoryStore struct {
	store limiter.Store
}

// NewMemoryStore constructs an in-memory store. Keys are namespaced by prefix.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Store.
func (m *MemoryStore) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: time.Now().Add(window)}, nil
	}
	res, err := m.store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(max)})
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		ResetAt:   time.Unix(res.Reset, 0),
	}, nil
}
