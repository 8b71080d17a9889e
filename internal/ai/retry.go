package ai

import (
	"context"
	"math/rand"
	"time"
)

// withRetry runs fn up to cfg.RetryMax+1 times while it fails with a
// retryable error, sleeping with jittered exponential backoff between tries.
func withRetry(ctx context.Context, cfg EmbedderConfig, fn func() error) error {
	backoff := cfg.BaseDelay
	var err error
	for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
		if err = fn(); err == nil || !retryable(err) || attempt == cfg.RetryMax {
			return err
		}
		sleep := withJitter(backoff)
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter > 0 {
			sleep = rl.RetryAfter
		}
		if cfg.MaxDelay > 0 && sleep > cfg.MaxDelay {
			sleep = cfg.MaxDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
	}
	return err
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 200 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
