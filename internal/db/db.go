package db

import (
	"context"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/textjournal/backend/internal/models"
)

const sqlitePrefix = "sqlite://"

type Config struct {
	DatabaseURL     string
	PoolSize        int
	PoolRecycle     time.Duration
	PoolPrePing     bool
	ConnectTimeout  time.Duration
	ApplicationName string
}

// IsSQLite reports whether the URL selects the embedded development database.
func IsSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, sqlitePrefix)
}

func Open(cfg Config) (*gorm.DB, error) {
	// Slow threshold of 1s keeps AutoMigrate introspection out of the log
	customLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormCfg := &gorm.Config{
		Logger:  customLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	if IsSQLite(cfg.DatabaseURL) {
		return openSQLite(strings.TrimPrefix(cfg.DatabaseURL, sqlitePrefix), gormCfg)
	}

	gormCfg.PrepareStmt = true
	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.PoolSize)
	// Half the pool stays idle for reuse, minimum 2
	idleConns := cfg.PoolSize / 2
	if idleConns < 2 {
		idleConns = 2
	}
	sqlDB.SetMaxIdleConns(idleConns)
	sqlDB.SetConnMaxLifetime(cfg.PoolRecycle)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if cfg.PoolPrePing {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Printf("db ping error: %v", err)
		}
	}

	optimizationQueries := []string{
		"SET timezone = 'UTC'",
		"SET statement_timeout = '30s'",
		"SET lock_timeout = '10s'",
	}
	for _, query := range optimizationQueries {
		if _, err := sqlDB.Exec(query); err != nil {
			log.Printf("warning: failed to execute optimization query '%s': %v", query, err)
		}
	}

	return db, nil
}

// OpenSQLite opens an SQLite database (":memory:" or a file path) with the
// schema migrated. Used for local development and by tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := openSQLite(path, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Every pooled connection to ":memory:" would be a separate database
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.JournalEntry{},
		&models.Photo{},
		&models.RateLimitRecord{},
		&models.AccountLockout{},
		&models.LoginAttempt{},
		&models.SecurityEvent{},
		&models.SmsConsent{},
	)
}

func postgresDSN(cfg Config) string {
	databaseURL := cfg.DatabaseURL
	if databaseURL == "" {
		return databaseURL
	}
	params := []string{}
	if !containsParam(databaseURL, "timezone") {
		params = append(params, "timezone=UTC")
	}
	if !containsParam(databaseURL, "connect_timeout") {
		params = append(params, "connect_timeout=10")
	}
	if cfg.ApplicationName != "" && !containsParam(databaseURL, "application_name") {
		params = append(params, "application_name="+cfg.ApplicationName)
	}
	// For production, set sslmode=require or verify-full in DATABASE_URL
	if !containsParam(databaseURL, "sslmode") {
		params = append(params, "sslmode=disable")
	}
	if len(params) > 0 {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL = databaseURL + separator + strings.Join(params, "&")
	}
	return databaseURL
}

func containsParam(url string, param string) bool {
	return strings.Contains(url, param+"=")
}
