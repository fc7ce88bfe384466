package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textjournal/backend/internal/models"
)

const (
	EndpointSignin        = "signin"
	EndpointSignup        = "signup"
	EndpointFailedAttempt = "failed_attempt"
)

// RateLimitResult is the outcome of one attempt against a fixed window.
type RateLimitResult struct {
	Allowed      bool       `json:"allowed"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

// RateLimiter counts attempts per (identifier, endpoint) in fixed windows.
// The increment is a single upsert so concurrent attempts never lose updates.
type RateLimiter struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRateLimiter(db *gorm.DB, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{db: db, now: now}
}

// Check records one attempt and reports whether it is allowed. Rejected
// attempts still count.
func (r *RateLimiter) Check(ctx context.Context, identifier, endpoint string, maxAttempts int, window time.Duration) (RateLimitResult, error) {
	now := r.now().UTC()
	windowFloor := now.Add(-window)

	rec := models.RateLimitRecord{
		Identifier:  identifier,
		Endpoint:    endpoint,
		Attempts:    1,
		WindowStart: now,
		MaxAttempts: maxAttempts,
		UpdatedAt:   now,
	}

	// An elapsed window restarts at 1; otherwise the stored counter is bumped.
	// The upsert holds the row lock until commit, so the read-back is ours.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identifier"}, {Name: "endpoint"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"attempts":      gorm.Expr("CASE WHEN rate_limits.window_start <= ? THEN 1 ELSE rate_limits.attempts + 1 END", windowFloor),
				"window_start":  gorm.Expr("CASE WHEN rate_limits.window_start <= ? THEN excluded.window_start ELSE rate_limits.window_start END", windowFloor),
				"blocked_until": gorm.Expr("CASE WHEN rate_limits.window_start <= ? THEN NULL ELSE rate_limits.blocked_until END", windowFloor),
				"max_attempts":  gorm.Expr("excluded.max_attempts"),
				"updated_at":    gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		return tx.Where("identifier = ? AND endpoint = ?", identifier, endpoint).First(&rec).Error
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit upsert: %w", err)
	}

	res := RateLimitResult{
		Allowed:     rec.Attempts <= maxAttempts,
		Attempts:    rec.Attempts,
		MaxAttempts: maxAttempts,
	}
	if !res.Allowed {
		blockedUntil := rec.WindowStart.Add(window).UTC()
		res.BlockedUntil = &blockedUntil
		if rec.BlockedUntil == nil || !rec.BlockedUntil.Equal(blockedUntil) {
			err := r.db.WithContext(ctx).Model(&models.RateLimitRecord{}).
				Where("identifier = ? AND endpoint = ?", identifier, endpoint).
				Update("blocked_until", blockedUntil).Error
			if err != nil {
				return res, fmt.Errorf("rate limit block: %w", err)
			}
		}
	}
	return res, nil
}

// Reset drops the counter. The token endpoint calls it for the signin key
// once credentials check out.
func (r *RateLimiter) Reset(ctx context.Context, identifier, endpoint string) error {
	return r.db.WithContext(ctx).
		Where("identifier = ? AND endpoint = ?", identifier, endpoint).
		Delete(&models.RateLimitRecord{}).Error
}

// PurgeExpired removes records whose window ended before cutoff.
func (r *RateLimiter) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("window_start < ?", cutoff.UTC()).
		Delete(&models.RateLimitRecord{})
	return res.RowsAffected, res.Error
}
