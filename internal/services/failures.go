package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/utils"
)

// FailureTracker records failed credential checks reported by clients and
// drives the account lockout.
type FailureTracker struct {
	db      *gorm.DB
	lockout *LockoutService
	events  *SecurityEventLogger
	log     logging.Logger
	now     func() time.Time
}

func NewFailureTracker(db *gorm.DB, lockout *LockoutService, events *SecurityEventLogger, log logging.Logger, now func() time.Time) *FailureTracker {
	if now == nil {
		now = time.Now
	}
	return &FailureTracker{db: db, lockout: lockout, events: events, log: log, now: now}
}

// RecordFailedSignin stores the attempt and bumps the lockout counter.
func (f *FailureTracker) RecordFailedSignin(ctx context.Context, email, ipAddress string) (LockStatus, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return LockStatus{}, invalid("Invalid email address format")
	}

	attempt := models.LoginAttempt{Email: email, IPAddress: ipAddress, Success: false, CreatedAt: f.now().UTC()}
	if err := f.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		f.log.Warn(ctx, "failed to record login attempt", "email", utils.MaskEmail(email), "error", err)
	}

	wasLocked := false
	if st, err := f.lockout.IsLocked(ctx, email); err == nil {
		wasLocked = st.Locked
	}

	st, err := f.lockout.RecordFailure(ctx, email)
	if err != nil {
		return LockStatus{}, err
	}

	identifier := ipAddress + ":" + email
	f.events.Log(ctx, models.EventFailedSignin, identifier, map[string]any{
		"email":           email,
		"failed_attempts": st.FailedAttempts,
	}, models.SeverityMedium)

	if st.Locked && !wasLocked {
		f.events.Log(ctx, models.EventAccountLocked, identifier, map[string]any{
			"email":        email,
			"locked_until": st.LockedUntil,
		}, models.SeverityHigh)
		f.log.Warn(ctx, "account locked", "email", utils.MaskEmail(email), "locked_until", st.LockedUntil)
	}
	return st, nil
}

// CleanupOldAttempts removes login attempts older than 24 hours.
func (f *FailureTracker) CleanupOldAttempts(ctx context.Context) (int64, error) {
	oneDayAgo := f.now().UTC().Add(-24 * time.Hour)
	res := f.db.WithContext(ctx).Where("created_at < ?", oneDayAgo).Delete(&models.LoginAttempt{})
	return res.RowsAffected, res.Error
}
