package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textjournal/backend/internal/models"
)

// LockStatus is the read-side answer for one email.
type LockStatus struct {
	Locked         bool       `json:"locked"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
}

// LockoutService tracks failed credential checks per email and locks the
// account once the threshold is reached.
type LockoutService struct {
	db        *gorm.DB
	threshold int
	duration  time.Duration
	now       func() time.Time
}

func NewLockoutService(db *gorm.DB, threshold int, duration time.Duration, now func() time.Time) *LockoutService {
	if now == nil {
		now = time.Now
	}
	return &LockoutService{db: db, threshold: threshold, duration: duration, now: now}
}

// IsLocked is a single-row read. Missing rows and expired locks are unlocked.
func (l *LockoutService) IsLocked(ctx context.Context, email string) (LockStatus, error) {
	var rec models.AccountLockout
	err := l.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LockStatus{}, nil
	}
	if err != nil {
		return LockStatus{}, fmt.Errorf("lockout lookup: %w", err)
	}

	st := LockStatus{FailedAttempts: rec.FailedAttempts}
	if rec.LockedUntil != nil && rec.LockedUntil.After(l.now()) {
		until := rec.LockedUntil.UTC()
		st.Locked = true
		st.LockedUntil = &until
	}
	return st, nil
}

// RecordFailure atomically increments the failure counter. A counter whose
// lock already expired, or that saw no failure for a full lockout duration,
// starts over at 1. Reaching the threshold sets locked_until.
func (l *LockoutService) RecordFailure(ctx context.Context, email string) (LockStatus, error) {
	now := l.now().UTC()
	stale := now.Add(-l.duration)
	rec := models.AccountLockout{Email: email, FailedAttempts: 1, UpdatedAt: now}
	restart := "(account_lockouts.locked_until IS NOT NULL AND account_lockouts.locked_until <= ?) OR (account_lockouts.locked_until IS NULL AND account_lockouts.updated_at <= ?)"

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"failed_attempts": gorm.Expr("CASE WHEN "+restart+" THEN 1 ELSE account_lockouts.failed_attempts + 1 END", now, stale),
				"locked_until":    gorm.Expr("CASE WHEN "+restart+" THEN NULL ELSE account_lockouts.locked_until END", now, stale),
				"updated_at":      gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		return tx.Where("email = ?", email).First(&rec).Error
	})
	if err != nil {
		return LockStatus{}, fmt.Errorf("lockout upsert: %w", err)
	}

	st := LockStatus{FailedAttempts: rec.FailedAttempts}
	if rec.LockedUntil != nil && rec.LockedUntil.After(now) {
		until := rec.LockedUntil.UTC()
		st.Locked = true
		st.LockedUntil = &until
		return st, nil
	}

	if rec.FailedAttempts >= l.threshold {
		until := now.Add(l.duration)
		if err := l.db.WithContext(ctx).Model(&models.AccountLockout{}).
			Where("email = ?", email).
			Updates(map[string]any{"locked_until": until, "updated_at": now}).Error; err != nil {
			return st, fmt.Errorf("lockout set: %w", err)
		}
		st.Locked = true
		st.LockedUntil = &until
	}
	return st, nil
}

// Clear removes the lockout row after a successful sign-in.
func (l *LockoutService) Clear(ctx context.Context, email string) error {
	return l.db.WithContext(ctx).Where("email = ?", email).Delete(&models.AccountLockout{}).Error
}

// PurgeExpired deletes lockouts that ended before cutoff and unlocked
// counters idle for a full lockout duration before cutoff.
func (l *LockoutService) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	res := l.db.WithContext(ctx).
		Where("(locked_until IS NOT NULL AND locked_until < ?) OR (locked_until IS NULL AND updated_at < ?)", cutoff, cutoff.Add(-l.duration)).
		Delete(&models.AccountLockout{})
	return res.RowsAffected, res.Error
}
