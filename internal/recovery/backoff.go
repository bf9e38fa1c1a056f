// Package recovery bounds the blocking link operations with retries and
// tracks error streaks for health reporting.
package recovery

import (
	"context"
	"fmt"
	"time"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/logger"
)

// BackoffConfig controls the exponential backoff behavior
type BackoffConfig struct {
	// InitialDelay is the delay before the first retry (default: 1s)
	InitialDelay time.Duration

	// MaxDelay is the ceiling for backoff growth (default: 30s)
	MaxDelay time.Duration

	// Multiplier scales the delay after each retry (default: 2.0)
	Multiplier float64

	// MaxRetries is the number of attempts before giving up (default: 5)
	MaxRetries int

	// AttemptTimeout limits each attempt (default: 10s)
	AttemptTimeout time.Duration
}

// DefaultBackoffConfig returns 1s, 2s, 4s, 8s between five attempts of at
// most 10s each
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		MaxRetries:     5,
		AttemptTimeout: 10 * time.Second,
	}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	d := DefaultBackoffConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	return c
}

// Delays returns the wait before each retry
func (c BackoffConfig) Delays() []time.Duration {
	c = c.withDefaults()
	delays := make([]time.Duration, 0, c.MaxRetries-1)
	delay := c.InitialDelay
	for i := 1; i < c.MaxRetries; i++ {
		delays = append(delays, delay)
		delay = time.Duration(float64(delay) * c.Multiplier)
		if delay > c.MaxDelay {
			delay = c.MaxDelay
		}
	}
	return delays
}

// Retry calls fn until it succeeds, returns a non-recoverable error, ctx
// ends or MaxRetries attempts have failed. Each attempt runs under its own
// AttemptTimeout. The last attempt's error is wrapped in the result.
func Retry(ctx context.Context, name string, cfg BackoffConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	delays := cfg.Delays()

	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		err = runAttempt(ctx, cfg.AttemptTimeout, fn)
		if err == nil {
			if attempt > 1 {
				logger.LogInfo("✅ %s succeeded after %d attempts", name, attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s cancelled: %w", name, err)
		}
		if !perrors.IsRecoverable(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := delays[attempt-1]
		logger.LogWarn("⚠️ %s failed (attempt %d/%d): %v", name, attempt, cfg.MaxRetries, err)
		logger.LogInfo("⏳ Retrying in %v...", delay)
		if !SleepCtx(ctx, delay) {
			return fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxRetries, err)
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// SleepCtx sleeps for d or until ctx is cancelled. Returns false if cancelled.
func SleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
