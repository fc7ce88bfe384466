package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/cryptox"
	"github.com/textjournal/backend/internal/db"
	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

type testEnv struct {
	db       *gorm.DB
	clock    *fakeClock
	log      logging.Logger
	limiter  *RateLimiter
	lockout  *LockoutService
	events   *SecurityEventLogger
	identity *IdentityService
	gateway  *AuthGateway
	failures *FailureTracker
	cipher   *cryptox.ContentCipher
	photos   *storage.MemoryStore
	journal  *JournalService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := newTestDB(t)
	clock := newClock()
	log := logging.Discard()

	env := &testEnv{db: gdb, clock: clock, log: log}
	env.limiter = NewRateLimiter(gdb, clock.Now)
	env.lockout = NewLockoutService(gdb, 5, 30*time.Minute, clock.Now)
	env.events = NewSecurityEventLogger(gdb, log, clock.Now)
	env.identity = NewIdentityService(gdb, IdentityConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}, env.lockout, log, clock.Now)
	env.gateway = NewAuthGateway(env.limiter, env.lockout, env.events, env.identity, GatewayConfig{
		SigninMaxAttempts: 5,
		SignupMaxAttempts: 3,
		Window:            15 * time.Minute,
	}, log)
	env.failures = NewFailureTracker(gdb, env.lockout, env.events, log, clock.Now)

	cipher, err := cryptox.NewContentCipher("test-master")
	require.NoError(t, err)
	env.cipher = cipher
	env.photos = storage.NewMemoryStore("http://photos.test")
	env.journal = NewJournalService(gdb, cipher, env.photos, NewTimezoneService(clock.Now), log, clock.Now)

	t.Cleanup(env.events.Flush)
	return env
}
