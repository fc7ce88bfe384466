package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textjournal/backend/internal/models"
)

func TestGateway_ValidationOrder(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  PreflightRequest
		msg  string
	}{
		{"unknown action", PreflightRequest{Action: "reset", Email: "a@b.co", Password: "x"}, "Invalid action. Must be 'signin' or 'signup'"},
		{"bad email", PreflightRequest{Action: "signin", Email: "not-an-email", Password: "x"}, "Invalid email address"},
		{"missing password", PreflightRequest{Action: "signin", Email: "a@b.co"}, "Password is required"},
		{"weak signup password", PreflightRequest{Action: "signup", Email: "a@b.co", Password: "abcdefg1"}, "Password must contain at least one uppercase letter"},
		{"short signup password", PreflightRequest{Action: "signup", Email: "a@b.co", Password: "Abcde1"}, "Password must be at least 8 characters long"},
		{"short phone", PreflightRequest{Action: "signup", Email: "a@b.co", Password: "Abcdefg1", PhoneNumber: "123"}, "Phone number must be between 10 and 15 digits"},
		{"bad timezone", PreflightRequest{Action: "signup", Email: "a@b.co", Password: "Abcdefg1", Timezone: "Nowhere/Land"}, "Invalid timezone"},
		{"markup in signup", PreflightRequest{Action: "signup", Email: "<script>@b.co", Password: "Abcdefg1"}, "Invalid input detected"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.gateway.Preflight(ctx, tc.req, "1.1.1.1")
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.msg, verr.Message)
		})
	}

	// validation failures never touch the counters
	var count int64
	env.db.Model(&models.RateLimitRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)

	env.events.Flush()
	suspicious, err := env.events.List(ctx, SecurityEventFilter{EventType: models.EventSuspiciousSignupAttempt})
	require.NoError(t, err)
	assert.Len(t, suspicious, 1)
}

func TestGateway_SigninWeakPasswordStillValidates(t *testing.T) {
	env := newEnv(t)

	res, err := env.gateway.Preflight(context.Background(), PreflightRequest{Action: "signin", Email: "a@b.co", Password: "weak"}, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, res.ValidationPassed)
	assert.Equal(t, 1, res.RateLimit.Attempts)
	assert.Equal(t, 5, res.RateLimit.MaxAttempts)
	assert.Nil(t, res.Account)
}

func TestGateway_SigninRateLimited(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	req := PreflightRequest{Action: "signin", Email: "a@b.co", Password: "pw"}

	for i := 0; i < 5; i++ {
		_, err := env.gateway.Preflight(ctx, req, "1.1.1.1")
		require.NoError(t, err)
	}
	_, err := env.gateway.Preflight(ctx, req, "1.1.1.1")
	var rlErr *RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.True(t, rlErr.BlockedUntil.After(env.clock.Now()))

	// different address is a different identifier
	_, err = env.gateway.Preflight(ctx, req, "2.2.2.2")
	assert.NoError(t, err)

	env.events.Flush()
	events, err := env.events.List(ctx, SecurityEventFilter{EventType: models.EventRateLimitExceeded})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "1.1.1.1:a@b.co", events[0].Identifier)
	assert.Equal(t, models.SeverityMedium, events[0].Severity)
}

func TestGateway_LockBeatsRateLimit(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.lockout.RecordFailure(ctx, "jane@example.com")
		require.NoError(t, err)
	}

	_, err := env.gateway.Preflight(ctx, PreflightRequest{Action: "signin", Email: "jane@example.com", Password: "pw"}, "1.1.1.1")
	var lockErr *LockoutError
	require.True(t, errors.As(err, &lockErr))
	assert.True(t, lockErr.LockedUntil.Equal(env.clock.Now().Add(30*time.Minute)))

	// the rate limiter alone would have allowed it
	var rec models.RateLimitRecord
	require.NoError(t, env.db.Where("identifier = ?", "1.1.1.1:jane@example.com").First(&rec).Error)
	assert.Equal(t, 1, rec.Attempts)

	// signup never consults the lockout
	_, err = env.gateway.Preflight(ctx, PreflightRequest{Action: "signup", Email: "jane@example.com", Password: "Abcdefg1"}, "1.1.1.1")
	assert.NoError(t, err)
}

func TestGateway_SignupCreatesAccount(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res, err := env.gateway.Preflight(ctx, PreflightRequest{
		Action:      "signup",
		Email:       "Jane@Example.com",
		Password:    "Abcdefg1",
		PhoneNumber: "555-123-4567",
		Timezone:    "America/New_York",
	}, "1.1.1.1")
	require.NoError(t, err)
	require.NotNil(t, res.Account)
	assert.False(t, res.ValidationPassed)
	assert.Equal(t, "jane@example.com", res.Account.Email)
	require.NotNil(t, res.Account.PhoneNumber)
	assert.Equal(t, "5551234567", *res.Account.PhoneNumber)
	assert.Equal(t, "America/New_York", res.Account.TimezoneOrUTC())
	assert.Equal(t, 1, res.RateLimit.Attempts)
	assert.Equal(t, 3, res.RateLimit.MaxAttempts)

	env.events.Flush()
	events, err := env.events.List(ctx, SecurityEventFilter{EventType: models.EventUserSignup})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.SeverityLow, events[0].Severity)
}

func TestGateway_SignupProviderErrorAndLimit(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	req := PreflightRequest{Action: "signup", Email: "jane@example.com", Password: "Abcdefg1"}

	_, err := env.gateway.Preflight(ctx, req, "1.1.1.1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = env.gateway.Preflight(ctx, req, "1.1.1.1")
		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "User already registered", perr.Message)
	}

	_, err = env.gateway.Preflight(ctx, req, "1.1.1.1")
	var rlErr *RateLimitError
	assert.True(t, errors.As(err, &rlErr))

	env.events.Flush()
	failed, err := env.events.List(ctx, SecurityEventFilter{EventType: models.EventFailedSignup})
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}

type failingCreator struct{}

func (failingCreator) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestGateway_UnexpectedSignupErrorIsNotProviderError(t *testing.T) {
	env := newEnv(t)
	gw := NewAuthGateway(env.limiter, env.lockout, env.events, failingCreator{}, GatewayConfig{SigninMaxAttempts: 5, SignupMaxAttempts: 3, Window: 15 * time.Minute}, env.log)

	_, err := gw.Preflight(context.Background(), PreflightRequest{Action: "signup", Email: "a@b.co", Password: "Abcdefg1"}, "ip")
	require.Error(t, err)
	var perr *ProviderError
	assert.False(t, errors.As(err, &perr))
}
