package genai

import (
	"context"
	"time"
)

// Policy bounds the retry loop around a flaky endpoint.
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	BackoffFactor float64
}

// DefaultPolicy waits 1s, 2s, 4s between four attempts.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 4, BaseDelay: time.Second, BackoffFactor: 2}
}

// Delay returns the backoff wait before the given attempt. Attempt 1 runs
// immediately; attempt n waits BaseDelay * BackoffFactor^(n-2).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 2; i < attempt; i++ {
		d *= p.BackoffFactor
	}
	return time.Duration(d)
}

// retry runs fn up to p.MaxAttempts times with exponential backoff between
// attempts. Context cancellation aborts immediately, during a wait or
// mid-attempt, and is reported as the context's error rather than a
// TransportError. When every attempt fails the last error comes back wrapped
// in a TransportError.
func retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Delay(attempt)); err != nil {
				return zero, err
			}
		}
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}
	return zero, &TransportError{Attempts: attempts, Err: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
