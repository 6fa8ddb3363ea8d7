package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by TryWithLock when another holder owns the key.
var ErrNotAcquired = errors.New("lock: already held")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker provides a Redis-backed distributed lock keyed by name. Each
// acquisition stores a random token so only the owner can release it.
type Locker struct {
	client       *redis.Client
	retryBackoff time.Duration
}

// New constructs a Locker. retryBackoff is the polling interval used by
// WithLock while the key is held elsewhere.
func New(client *redis.Client, retryBackoff time.Duration) *Locker {
	if retryBackoff <= 0 {
		retryBackoff = 50 * time.Millisecond
	}
	return &Locker{client: client, retryBackoff: retryBackoff}
}

// WithLock executes fn while holding key, waiting until the key is free or
// ctx ends. The lock is released when fn returns, even on error.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	for {
		token, ok, err := l.acquire(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer l.release(context.WithoutCancel(ctx), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(l.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryWithLock executes fn only if key can be acquired immediately. It returns
// ErrNotAcquired without calling fn when the key is held.
func (l *Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	token, ok, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer l.release(context.WithoutCancel(ctx), key, token)
	return fn(ctx)
}

func (l *Locker) validate(fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

func (l *Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) release(ctx context.Context, key, token string) {
	if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.client.Del(ctx, key).Err()
		}
	}
}
