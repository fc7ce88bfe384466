package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/utils"
)

const (
	ActionSignin = "signin"
	ActionSignup = "signup"
)

// AccountCreator is the identity provider's account-creation capability.
type AccountCreator interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.User, error)
}

// PreflightRequest is the gateway's input for both actions.
type PreflightRequest struct {
	Action      string `json:"action" example:"signin"`
	Email       string `json:"email" example:"jane@example.com"`
	Password    string `json:"password" example:"Abcdefg1"`
	PhoneNumber string `json:"phoneNumber,omitempty" example:"555-123-4567"`
	Timezone    string `json:"timezone,omitempty" example:"America/Los_Angeles"`
}

// PreflightResult is returned when every check passed. For signin only
// ValidationPassed and Message are meaningful; for signup Account holds the
// created account.
type PreflightResult struct {
	ValidationPassed bool
	Message          string
	RateLimit        RateLimitResult
	Account          *models.User
}

type GatewayConfig struct {
	SigninMaxAttempts int
	SignupMaxAttempts int
	Window            time.Duration
}

// AuthGateway runs the server-side pre-flight: input validation, rate
// limiting, lockout and audit. It never verifies sign-in credentials; the
// client does that directly with the identity provider.
type AuthGateway struct {
	limiter  *RateLimiter
	lockout  *LockoutService
	events   *SecurityEventLogger
	accounts AccountCreator
	cfg      GatewayConfig
	log      logging.Logger
}

func NewAuthGateway(limiter *RateLimiter, lockout *LockoutService, events *SecurityEventLogger, accounts AccountCreator, cfg GatewayConfig, log logging.Logger) *AuthGateway {
	return &AuthGateway{limiter: limiter, lockout: lockout, events: events, accounts: accounts, cfg: cfg, log: log}
}

// Preflight validates req for the caller at clientIP. Errors are
// *ValidationError, *RateLimitError, *LockoutError, *ProviderError or an
// unexpected failure.
func (g *AuthGateway) Preflight(ctx context.Context, req PreflightRequest, clientIP string) (*PreflightResult, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != ActionSignin && action != ActionSignup {
		return nil, invalid("Invalid action. Must be 'signin' or 'signup'")
	}

	if action == ActionSignup && utils.LooksSuspicious(req.Email, req.PhoneNumber, req.Timezone) {
		g.events.Log(ctx, models.EventSuspiciousSignupAttempt, clientIP, map[string]any{
			"email_length": len(req.Email),
			"has_phone":    req.PhoneNumber != "",
		}, models.SeverityHigh)
		return nil, invalid("Invalid input detected")
	}

	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, invalid("Invalid email address")
	}

	if req.Password == "" {
		return nil, invalid("Password is required")
	}

	if action == ActionSignup {
		if ok, msg := utils.ValidatePassword(req.Password); !ok {
			return nil, invalid("%s", msg)
		}
	}

	var phone string
	if strings.TrimSpace(req.PhoneNumber) != "" {
		digits, ok, msg := utils.ValidatePhoneNumber(req.PhoneNumber)
		if !ok {
			return nil, invalid("%s", msg)
		}
		phone = digits
	}

	if action == ActionSignup && req.Timezone != "" && !utils.IsValidTimezone(req.Timezone) {
		return nil, invalid("Invalid timezone")
	}

	identifier := clientIP + ":" + email
	maxAttempts := g.cfg.SigninMaxAttempts
	if action == ActionSignup {
		maxAttempts = g.cfg.SignupMaxAttempts
	}

	rl, err := g.limiter.Check(ctx, identifier, action, maxAttempts, g.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !rl.Allowed {
		g.events.Log(ctx, models.EventRateLimitExceeded, identifier, map[string]any{
			"endpoint":      action,
			"attempts":      rl.Attempts,
			"max_attempts":  rl.MaxAttempts,
			"blocked_until": rl.BlockedUntil,
		}, models.SeverityMedium)
		return nil, &RateLimitError{BlockedUntil: *rl.BlockedUntil}
	}

	if action == ActionSignin {
		st, err := g.lockout.IsLocked(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lockout check: %w", err)
		}
		if st.Locked {
			g.events.Log(ctx, models.EventLockedSigninAttempt, identifier, map[string]any{
				"locked_until": st.LockedUntil,
			}, models.SeverityMedium)
			return nil, &LockoutError{LockedUntil: *st.LockedUntil}
		}

		g.events.Log(ctx, models.EventSigninValidationPassed, identifier, map[string]any{
			"attempts": rl.Attempts,
		}, models.SeverityLow)
		return &PreflightResult{
			ValidationPassed: true,
			Message:          "Validation passed. Proceed with authentication.",
			RateLimit:        rl,
		}, nil
	}

	metadata := map[string]any{}
	if phone != "" {
		metadata["phone_number"] = phone
	}
	if req.Timezone != "" {
		metadata["timezone"] = req.Timezone
	}

	account, err := g.accounts.SignUp(ctx, email, req.Password, metadata)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			g.events.Log(ctx, models.EventFailedSignup, identifier, map[string]any{
				"reason": perr.Message,
			}, models.SeverityMedium)
			return nil, perr
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	g.events.Log(ctx, models.EventUserSignup, identifier, map[string]any{
		"user_id":   account.ID,
		"has_phone": phone != "",
	}, models.SeverityLow)
	g.log.Info(ctx, "account created", "user_id", account.ID)

	return &PreflightResult{RateLimit: rl, Account: account}, nil
}
