package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/config"
	"github.com/textjournal/backend/internal/cryptox"
	"github.com/textjournal/backend/internal/db"
	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/storage"
)

type Server struct {
	DB  *gorm.DB
	Cfg config.AppConfig
	Log logging.Logger

	Identity      *services.IdentityService
	Gateway       *services.AuthGateway
	Limiter       *services.RateLimiter
	Lockout       *services.LockoutService
	Failures      *services.FailureTracker
	Events        *services.SecurityEventLogger
	Journal       *services.JournalService
	Consents      *services.ConsentService
	Notifications *services.NotificationDispatcher
	Timezone      *services.TimezoneService
	Cleanup       *services.CleanupRunner

	now func() time.Time
}

// Options carries the collaborators that differ between deployments and
// tests. Zero values fall back to the production choice.
type Options struct {
	Photos     storage.PhotoStore
	Notifier   services.Notifier
	Log        logging.Logger
	Now        func() time.Time
	BcryptCost int
}

func New(e *echo.Echo, gdb *gorm.DB, cfg config.AppConfig, opts Options) (*Server, error) {
	if err := db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Photos == nil {
		return nil, errors.New("photo store is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = services.NewLogNotifier(opts.Log)
	}

	cipher, err := cryptox.NewContentCipher(cfg.ContentEncryptionKey)
	if err != nil {
		return nil, err
	}

	log := opts.Log
	limiter := services.NewRateLimiter(gdb, opts.Now)
	lockout := services.NewLockoutService(gdb, cfg.LockoutThreshold, cfg.LockoutDuration, opts.Now)
	events := services.NewSecurityEventLogger(gdb, log.With("component", "security_events"), opts.Now)
	identity := services.NewIdentityService(gdb, services.IdentityConfig{
		JWTSecret:  cfg.JWTSecret,
		JWTExpiry:  cfg.JWTExpiry,
		BcryptCost: opts.BcryptCost,
	}, lockout, log.With("component", "identity"), opts.Now)
	failures := services.NewFailureTracker(gdb, lockout, events, log, opts.Now)
	timezone := services.NewTimezoneService(opts.Now)

	s := &Server{
		DB:       gdb,
		Cfg:      cfg,
		Log:      log,
		Identity: identity,
		Gateway: services.NewAuthGateway(limiter, lockout, events, identity, services.GatewayConfig{
			SigninMaxAttempts: cfg.SigninMaxAttempts,
			SignupMaxAttempts: cfg.SignupMaxAttempts,
			Window:            cfg.RateLimitWindow,
		}, log.With("component", "auth_gateway")),
		Limiter:       limiter,
		Lockout:       lockout,
		Failures:      failures,
		Events:        events,
		Journal:       services.NewJournalService(gdb, cipher, opts.Photos, timezone, log.With("component", "journal"), opts.Now),
		Consents:      services.NewConsentService(gdb, opts.Now),
		Notifications: services.NewNotificationDispatcher(opts.Notifier, log.With("component", "notifications")),
		Timezone:      timezone,
		Cleanup:       services.NewCleanupRunner(limiter, lockout, failures, cfg.RateLimitWindow, log.With("component", "cleanup"), opts.Now),
		now:           opts.Now,
	}

	// Security middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			s.Log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())
	if cfg.GlobalRateLimitRPS > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.GlobalRateLimitRPS))))
	}

	// Health
	e.GET("/health", s.Health)

	// Pre-flight gateway for sign-in and sign-up
	e.POST("/auth-security", s.AuthSecurity)

	// Identity provider
	idp := e.Group("/auth/v1")
	idp.POST("/token", s.Token)
	idp.POST("/failed-attempt", s.FailedAttempt)
	idp.GET("/user", s.CurrentUser, s.JWTMiddleware())
	idp.POST("/logout", s.Logout, s.JWTMiddleware())

	// Webhooks (public routes, authenticated via API key)
	e.POST("/webhooks/sms-inbound", s.SMSInbound)

	// Auth (protected routes)
	authGroup := e.Group("/auth")
	authGroup.GET("/profile", s.GetProfile, s.JWTMiddleware())
	authGroup.PUT("/timezone", s.UpdateTimezone, s.JWTMiddleware())
	authGroup.POST("/logout", s.Logout, s.JWTMiddleware())

	// Protected routes (require authentication)
	protectedGroup := e.Group("", s.JWTMiddleware())

	protectedGroup.GET("/dashboard/stats", s.DashboardStats)

	protectedGroup.GET("/entries", s.ListEntries)
	protectedGroup.POST("/entries", s.CreateEntry)
	protectedGroup.GET("/entries/:id", s.GetEntry)
	protectedGroup.PUT("/entries/:id", s.UpdateEntry)
	protectedGroup.DELETE("/entries/:id", s.DeleteEntry)
	protectedGroup.DELETE("/entries/:id/photos/:photoId", s.DeletePhoto)

	protectedGroup.POST("/consents", s.RecordConsent)
	protectedGroup.GET("/consents/latest", s.LatestConsent)
	protectedGroup.POST("/notifications/confirmation", s.SendConfirmation)

	// Admin routes (require admin authentication)
	adminGroup := e.Group("/admin", s.JWTMiddleware(), s.AdminMiddleware())
	adminGroup.GET("/security-events", s.AdminSecurityEvents)
	adminGroup.GET("/users", s.AdminUsers)

	return s, nil
}

// StartBackground runs the hourly cleanup of expired counters until ctx ends.
func (s *Server) StartBackground(ctx context.Context) {
	s.Cleanup.Start(ctx, time.Hour)
}

// Shutdown waits for detached audit and notification work.
func (s *Server) Shutdown() {
	s.Events.Flush()
	s.Notifications.Flush()
}
