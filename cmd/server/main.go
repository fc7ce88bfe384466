// @title Text Journal API
// @version 1.0
// @description Journal entries by text message and web, behind a rate-limited and lockout-aware auth gateway
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@textjournal.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5001
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/textjournal/backend/docs" // Import generated docs
	"github.com/textjournal/backend/internal/config"
	"github.com/textjournal/backend/internal/db"
	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/server"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.DevMode)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(db.Config{
		DatabaseURL:     cfg.DatabaseURL,
		PoolSize:        cfg.PoolSize,
		PoolRecycle:     cfg.PoolRecycle,
		PoolPrePing:     cfg.PoolPrePing,
		ConnectTimeout:  cfg.ConnectTimeout,
		ApplicationName: cfg.ApplicationName,
	})
	if err != nil {
		log.Error(ctx, "db open error", "error", err)
		os.Exit(1)
	}

	photos, err := photoStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "photo storage setup failed", "backend", cfg.PhotoStorage, "error", err)
		os.Exit(1)
	}

	var notifier services.Notifier = services.NewLogNotifier(log)
	if cfg.SMTPHost != "" {
		notifier = services.NewSMTPNotifier(services.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.NotifyFrom,
		})
	}

	e := echo.New()
	e.HideBanner = true

	srv, err := server.New(e, gormDB, cfg, server.Options{
		Photos:   photos,
		Notifier: notifier,
		Log:      log,
	})
	if err != nil {
		log.Error(ctx, "server setup failed", "error", err)
		os.Exit(1)
	}

	// Add Swagger documentation endpoint
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	srv.StartBackground(ctx)

	go func() {
		log.Info(ctx, "listening", "port", cfg.Port, "photo_storage", cfg.PhotoStorage)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown", "error", err)
	}
	srv.Shutdown()
	log.Info(shutdownCtx, "bye")
}

func photoStore(ctx context.Context, cfg config.AppConfig) (storage.PhotoStore, error) {
	switch cfg.PhotoStorage {
	case "sftp":
		return storage.NewSFTPStore(storage.SFTPConfig{
			Host:          cfg.SFTPHost,
			Port:          cfg.SFTPPort,
			User:          cfg.SFTPUser,
			Pass:          cfg.SFTPPass,
			RootDir:       cfg.SFTPRootDir,
			PublicBaseURL: cfg.SFTPPublicBaseURL,
		}), nil
	case "s3", "":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			URLExpiry:     cfg.S3URLExpiry,
		})
	}
	return nil, errors.New("unknown PHOTO_STORAGE, want s3 or sftp")
}
