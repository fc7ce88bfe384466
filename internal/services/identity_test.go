package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/models"
)

func TestIdentity_SignUpStoresMetadata(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	user, err := env.identity.SignUp(ctx, "Jane@Example.com", "Abcdefg1", map[string]any{
		"phone_number": "5551234567",
		"timezone":     "America/Los_Angeles",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.NotEqual(t, "Abcdefg1", user.PasswordHash)
	require.NotNil(t, user.PhoneNumber)
	assert.Equal(t, "5551234567", *user.PhoneNumber)
	assert.Equal(t, "America/Los_Angeles", user.TimezoneOrUTC())
	assert.Equal(t, "5551234567", user.Metadata["phone_number"])

	_, err = env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "User already registered", perr.Message)
}

func TestIdentity_SignUpLongPassword(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.identity.SignUp(ctx, "long@example.com", "Abcdefg1"+strings.Repeat("x", 100), nil)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// multi-byte runes count toward the byte limit
	_, err = env.identity.SignUp(ctx, "runes@example.com", "Ábcdéfg1"+strings.Repeat("é", 20), nil)
	require.NoError(t, err)
}

func TestIdentity_SignInSessionLifecycle(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	require.NoError(t, err)

	_, err = env.identity.SignInWithPassword(ctx, "jane@example.com", "wrong", "1.1.1.1")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Invalid login credentials", perr.Message)

	_, err = env.identity.SignInWithPassword(ctx, "nobody@example.com", "Abcdefg1", "1.1.1.1")
	assert.True(t, errors.As(err, &perr))

	sess, err := env.identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", sess.TokenType)
	assert.True(t, sess.ExpiresAt.After(env.clock.Now()))

	u, err := env.identity.User(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	require.NotNil(t, u.LastLoginAt)

	require.NoError(t, env.identity.SignOut(ctx, sess.AccessToken))
	_, err = env.identity.User(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, env.identity.SignOut(ctx, sess.AccessToken), ErrUnauthorized)
}

func TestIdentity_NewSignInReplacesSession(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	require.NoError(t, err)

	first, err := env.identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.NoError(t, err)
	second, err := env.identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.NoError(t, err)

	_, err = env.identity.User(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.identity.User(ctx, second.AccessToken)
	assert.NoError(t, err)
}

func TestIdentity_SignInClearsLockout(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := env.lockout.RecordFailure(ctx, "jane@example.com")
		require.NoError(t, err)
	}
	_, err = env.identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.NoError(t, err)

	st, err := env.lockout.IsLocked(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, st.FailedAttempts)

	var attempts []models.LoginAttempt
	require.NoError(t, env.db.Find(&attempts).Error)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
}

func TestIdentity_SignInLogsBookkeepingFailures(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	var buf bytes.Buffer
	identity := NewIdentityService(env.db, IdentityConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}, env.lockout, logging.New(&buf, "debug", false), env.clock.Now)

	_, err := identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	require.NoError(t, err)
	require.NoError(t, env.db.Migrator().DropTable(&models.LoginAttempt{}, &models.AccountLockout{}))

	_, err = identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.Error(t, err, "lock lookup needs the lockout table")

	identity = NewIdentityService(env.db, IdentityConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}, nil, logging.New(&buf, "debug", false), env.clock.Now)
	_, err = identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "failed to record login attempt")
	assert.Contains(t, buf.String(), "j***@example.com")
}

func TestIdentity_LockedAccountCannotSignIn(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := env.lockout.RecordFailure(ctx, "jane@example.com")
		require.NoError(t, err)
	}

	sess, err := env.identity.SignInWithPassword(ctx, "Jane@Example.com", "Abcdefg1", "ip")
	assert.Nil(t, sess)
	var lerr *LockoutError
	require.ErrorAs(t, err, &lerr)
	assert.True(t, lerr.LockedUntil.Equal(env.clock.Now().Add(30*time.Minute)))

	// the refused sign-in leaves the lock in place
	st, err := env.lockout.IsLocked(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, st.Locked)

	env.clock.Advance(31 * time.Minute)
	_, err = env.identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.NoError(t, err)
}

func TestIdentity_ExpiredTokenRejected(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", nil)
	require.NoError(t, err)

	sess, err := env.identity.SignInWithPassword(ctx, "jane@example.com", "Abcdefg1", "ip")
	require.NoError(t, err)
	env.clock.Advance(2 * time.Hour)

	_, err = env.identity.User(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestIdentity_UpdateTimezoneAndFindByPhone(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	user, err := env.identity.SignUp(ctx, "jane@example.com", "Abcdefg1", map[string]any{"phone_number": "5551234567"})
	require.NoError(t, err)

	var verr *ValidationError
	assert.True(t, errors.As(env.identity.UpdateTimezone(ctx, user.ID, "Mars/Base"), &verr))
	require.NoError(t, env.identity.UpdateTimezone(ctx, user.ID, "Asia/Kolkata"))

	found, err := env.identity.FindByPhone(ctx, "(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "Asia/Kolkata", found.TimezoneOrUTC())

	_, err = env.identity.FindByPhone(ctx, "9999999999")
	assert.ErrorIs(t, err, ErrUnknownPhone)
}
