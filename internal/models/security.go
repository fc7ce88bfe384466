package models

import (
	"time"

	"gorm.io/datatypes"
)

// Security event severities
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Security event types
const (
	EventRateLimitExceeded       = "rate_limit_exceeded"
	EventUserSignup              = "user_signup"
	EventSuspiciousSignupAttempt = "suspicious_signup_attempt"
	EventFailedSignup            = "failed_signup"
	EventSigninValidationPassed  = "signin_validation_passed"
	EventLockedSigninAttempt     = "locked_signin_attempt"
	EventFailedSignin            = "failed_signin"
	EventAccountLocked           = "account_locked"
	EventSuccessfulSignin        = "successful_signin"
	EventAdminAccess             = "admin_access"
)

// RateLimitRecord counts attempts for one (identifier, endpoint) pair inside
// a fixed window.
type RateLimitRecord struct {
	Identifier   string     `gorm:"primaryKey;type:varchar(320)" json:"identifier"`
	Endpoint     string     `gorm:"primaryKey;type:varchar(64)" json:"endpoint"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	WindowStart  time.Time  `gorm:"not null" json:"window_start"`
	MaxAttempts  int        `gorm:"not null" json:"max_attempts"`
	BlockedUntil *time.Time `gorm:"index" json:"blocked_until,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (RateLimitRecord) TableName() string { return "rate_limits" }

type AccountLockout struct {
	Email          string     `gorm:"primaryKey;type:varchar(254)" json:"email"`
	FailedAttempts int        `gorm:"not null;default:0" json:"failed_attempts"`
	LockedUntil    *time.Time `gorm:"index" json:"locked_until,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type LoginAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;index" json:"email"`
	IPAddress string    `gorm:"not null;index" json:"ip_address"`
	Success   bool      `gorm:"not null" json:"success"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// SecurityEvent is append-only.
type SecurityEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EventType  string         `gorm:"type:varchar(64);not null;index" json:"event_type"`
	Identifier string         `gorm:"type:varchar(320);index" json:"identifier"`
	Details    datatypes.JSON `json:"details"`
	Severity   string         `gorm:"type:varchar(8);not null;index" json:"severity"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
