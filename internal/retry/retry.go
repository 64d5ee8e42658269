// Package retry runs an operation under a bounded attempt count with doubling
// backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Policy describes how many times an operation runs and how long to wait
// between attempts. Attempt n (1-based) is followed by a delay of
// BaseDelay * 2^(n-1), capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleeper replaces the timer-based wait. Tests use it to record delays.
	Sleeper func(time.Duration)
	// Retryable reports whether err is worth another attempt. Nil retries all errors.
	Retryable func(error) bool
}

// Default is the schedule used for platform status edits and file lookups:
// three attempts with 1s and 2s pauses.
func Default() Policy {
	return Policy{MaxAttempts: defaultAttempts, BaseDelay: defaultBaseDelay, MaxDelay: defaultMaxDelay}
}

// Do invokes fn until it succeeds, the attempts are exhausted, fn returns a
// non-retryable error, or ctx is cancelled.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if fn == nil {
		return errors.New("retry: nil operation")
	}
	attempts := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if err := p.sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Delay returns the pause that follows the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if attempt <= 0 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
