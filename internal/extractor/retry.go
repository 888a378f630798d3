package extractor

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// FixedRetryPolicy retries up to a fixed attempt ceiling with a constant
// inter-attempt delay. The extraction service rate-limits aggressively on
// bursts, so there is deliberately no exponential growth or jitter.
type FixedRetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// NewFixedRetryPolicy builds a policy, falling back to the defaults
// (3 attempts, 2s apart) for non-positive values.
func NewFixedRetryPolicy(maxAttempts int, delay time.Duration) FixedRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return FixedRetryPolicy{MaxAttempts: maxAttempts, Delay: delay}
}

// ShouldRetry reports whether another attempt is allowed after `attempt`
// attempts have failed. Context cancellation is never retried.
func (p FixedRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Wait blocks for the fixed delay or until the context finishes.
func (p FixedRetryPolicy) Wait(ctx context.Context) error {
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
