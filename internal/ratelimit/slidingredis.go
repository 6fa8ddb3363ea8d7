package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the verdict of a store for one request.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store records a request against key and decides whether it fits within max
// requests per window.
type Store interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error)
}

// SlidingWindow implements a sliding window rate limiter backed by Redis
// sorted sets, shared by every API instance.
type SlidingWindow struct {
	client *redis.Client
	prefix string
}

// NewSlidingWindow constructs a Redis-backed store. Keys are namespaced by prefix.
func NewSlidingWindow(client *redis.Client, prefix string) *SlidingWindow {
	return &SlidingWindow{client: client, prefix: prefix}
}

// Allow implements Store.
func (l *SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	until := now.Add(window)
	if l.client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: until}, nil
	}

	score := float64(now.UnixNano())
	cutoff := float64(now.Add(-window).UnixNano())
	redisKey := l.prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: until}, err
	}

	current := int(countCmd.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: current <= max, Remaining: remaining, ResetAt: until}, nil
}
