package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aws-pricing-api/internal/lock"
)

func newLocker(t *testing.T) (*lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.New(client, 5*time.Millisecond), mr
}

func TestWithLockSerialisesHolders(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		errs <- locker.WithLock(ctx, "catalog:warm", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		errs <- locker.WithLock(ctx, "catalog:warm", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	close(releaseFirst)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestTryWithLockSkipsWhenHeld(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("catalog:warm", "someone-else"))

	called := false
	err := locker.TryWithLock(ctx, "catalog:warm", time.Minute, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.False(t, called)

	got, err := mr.Get("catalog:warm")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got, "foreign lock must not be released")
}

func TestTryWithLockReleasesAfterError(t *testing.T) {
	locker, mr := newLocker(t)
	boom := errors.New("boom")

	err := locker.TryWithLock(context.Background(), "catalog:warm", time.Minute, func(context.Context) error {
		require.True(t, mr.Exists("catalog:warm"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("catalog:warm"))
}

func TestLockerWithoutRedis(t *testing.T) {
	err := lock.New(nil, 0).TryWithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.Error(t, err)
}
