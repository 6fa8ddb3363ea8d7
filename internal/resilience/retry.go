package resilience

import (
	"context"
	"errors"
	"time"
)

// Policy wraps an operation with retry, backoff and circuit-breaker logic.
type Policy struct {
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	// Retryable decides whether a failed attempt should be tried again.
	// A nil Retryable retries every error until the caller's context ends.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the attempts are exhausted or the error is not
// retryable. When the breaker refuses the call ErrOpenCircuit is returned.
// Non-retryable errors do not count as breaker failures because they describe
// the request, not the health of the dependency.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	breaker := p.Breaker
	if breaker == nil {
		// default to closed breaker that never trips
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseBackoff := p.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !breaker.Allow(ctx) {
			if lastErr != nil {
				return errors.Join(ErrOpenCircuit, lastErr)
			}
			return ErrOpenCircuit
		}
		err := fn(ctx)
		if err == nil {
			breaker.Report(ctx, true)
			return nil
		}
		lastErr = err
		if !p.retryable(ctx, err) {
			breaker.Report(ctx, true)
			return err
		}
		breaker.Report(ctx, false)
		if attempt == maxAttempts {
			break
		}
		RetryAttemptsTotal.WithLabelValues(breaker.Target()).Inc()
		timer := time.NewTimer(Backoff(baseBackoff, attempt, p.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (p Policy) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}
