package services

import (
	"context"
	"time"

	"github.com/textjournal/backend/internal/logging"
)

// CleanupRunner periodically purges expired rate-limit windows, ended
// lockouts and stale login attempts.
type CleanupRunner struct {
	limiter  *RateLimiter
	lockout  *LockoutService
	failures *FailureTracker
	window   time.Duration
	log      logging.Logger
	now      func() time.Time
}

func NewCleanupRunner(limiter *RateLimiter, lockout *LockoutService, failures *FailureTracker, window time.Duration, log logging.Logger, now func() time.Time) *CleanupRunner {
	if now == nil {
		now = time.Now
	}
	return &CleanupRunner{limiter: limiter, lockout: lockout, failures: failures, window: window, log: log, now: now}
}

// RunOnce performs a single cleanup pass.
func (c *CleanupRunner) RunOnce(ctx context.Context) {
	now := c.now().UTC()

	if n, err := c.limiter.PurgeExpired(ctx, now.Add(-c.window)); err != nil {
		c.log.Warn(ctx, "rate limit cleanup failed", "error", err)
	} else if n > 0 {
		c.log.Debug(ctx, "purged rate limit records", "count", n)
	}

	if n, err := c.lockout.PurgeExpired(ctx, now); err != nil {
		c.log.Warn(ctx, "lockout cleanup failed", "error", err)
	} else if n > 0 {
		c.log.Debug(ctx, "purged expired lockouts", "count", n)
	}

	if n, err := c.failures.CleanupOldAttempts(ctx); err != nil {
		c.log.Warn(ctx, "login attempt cleanup failed", "error", err)
	} else if n > 0 {
		c.log.Debug(ctx, "purged login attempts", "count", n)
	}
}

// Start runs RunOnce every interval until ctx is cancelled.
func (c *CleanupRunner) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RunOnce(ctx)
			}
		}
	}()
}
