// Package retry wraps upstream calls in a bounded retry loop with
// exponential backoff and jitter. Every upstream call site (embedding,
// completion, remote search, index management) goes through Do.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type Config struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Default matches the upstream call sites' shared policy.
var Default = Config{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = Default.Attempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = Default.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = Default.MaxDelay
	}
	return c
}

// Do invokes op up to cfg.Attempts times, sleeping between failures with
// exponential backoff plus random jitter. It returns nil on the first
// success, the context error if the context ends first, and the last
// operation error once attempts are exhausted.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}
		delay := backoff(cfg, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("after %d attempts: %w", cfg.Attempts, lastErr)
}

// backoff returns BaseDelay*2^(attempt-1) capped at MaxDelay, plus up to
// 50% random jitter so concurrent callers don't retry in lockstep.
func backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}
