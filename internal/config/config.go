package config

import (
	"fmt"
	"os"
	"time"
)

type AppConfig struct {
	Port string

	DatabaseURL string

	JWTSecret string
	JWTExpiry time.Duration

	// Master secret for per-user content key derivation
	ContentEncryptionKey string

	SigninMaxAttempts int
	SignupMaxAttempts int
	RateLimitWindow   time.Duration
	LockoutThreshold  int
	LockoutDuration   time.Duration

	PhotoStorage string // s3 or sftp

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	S3URLExpiry     time.Duration

	SFTPHost          string
	SFTPPort          int
	SFTPUser          string
	SFTPPass          string
	SFTPRootDir       string
	SFTPPublicBaseURL string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	NotifyFrom string

	SMSWebhookAPIKey string

	// Requests per second per client across the whole API, below 1 disables
	GlobalRateLimitRPS int

	// Development settings
	DevMode  bool
	LogLevel string

	PoolSize        int
	PoolRecycle     time.Duration
	PoolPrePing     bool
	ConnectTimeout  time.Duration
	ApplicationName string
}

func Load() AppConfig {
	cfg := AppConfig{}
	cfg.Port = getenv("PORT", "5001")
	cfg.DatabaseURL = getenv("DATABASE_URL", defaultPgURL())

	cfg.JWTSecret = getenv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production")
	cfg.JWTExpiry = time.Duration(getenvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour

	cfg.ContentEncryptionKey = getenv("CONTENT_ENCRYPTION_KEY", "dev-content-key-change-this-in-production")

	cfg.SigninMaxAttempts = getenvInt("SIGNIN_MAX_ATTEMPTS", 5)
	cfg.SignupMaxAttempts = getenvInt("SIGNUP_MAX_ATTEMPTS", 3)
	cfg.RateLimitWindow = time.Duration(getenvInt("RATE_LIMIT_WINDOW_MINUTES", 15)) * time.Minute
	cfg.LockoutThreshold = getenvInt("LOCKOUT_THRESHOLD", 5)
	cfg.LockoutDuration = time.Duration(getenvInt("LOCKOUT_MINUTES", 30)) * time.Minute

	cfg.PhotoStorage = getenv("PHOTO_STORAGE", "s3")

	cfg.S3Bucket = getenv("S3_BUCKET", "journal-photos")
	cfg.S3Region = getenv("S3_REGION", "us-east-1")
	cfg.S3Endpoint = getenv("S3_ENDPOINT", "http://127.0.0.1:9000/")
	cfg.S3AccessKey = getenv("S3_ACCESS_KEY", "admin")
	cfg.S3SecretKey = getenv("S3_SECRET_KEY", "secretpassword")
	cfg.S3PublicBaseURL = getenv("S3_PUBLIC_BASE_URL", "")
	cfg.S3URLExpiry = time.Duration(getenvInt("S3_URL_EXPIRY_MINUTES", 60)) * time.Minute

	cfg.SFTPHost = getenv("SFTP_HOST", "localhost")
	cfg.SFTPPort = getenvInt("SFTP_PORT", 22)
	cfg.SFTPUser = getenv("SFTP_USER", "journal")
	cfg.SFTPPass = getenv("SFTP_PASS", "")
	cfg.SFTPRootDir = getenv("SFTP_ROOT_DIR", "/srv/journal-photos")
	cfg.SFTPPublicBaseURL = getenv("SFTP_PUBLIC_BASE_URL", "http://localhost:8080/photos")

	cfg.SMTPHost = getenv("SMTP_HOST", "")
	cfg.SMTPPort = getenvInt("SMTP_PORT", 587)
	cfg.SMTPUser = getenv("SMTP_USER", "")
	cfg.SMTPPass = getenv("SMTP_PASS", "")
	cfg.NotifyFrom = getenv("NOTIFY_FROM", "no-reply@textjournal.app")

	cfg.SMSWebhookAPIKey = getenv("SMS_WEBHOOK_API_KEY", "sms-webhook-api-key-change-in-production")

	cfg.GlobalRateLimitRPS = getenvInt("GLOBAL_RATE_LIMIT_RPS", 20)

	cfg.DevMode = getenv("DEV_MODE", "false") == "true"
	cfg.LogLevel = getenv("LOG_LEVEL", "info")

	cfg.PoolSize = getenvInt("DB_POOL_SIZE", 25)
	cfg.PoolRecycle = time.Duration(getenvInt("DB_POOL_RECYCLE_SECONDS", 300)) * time.Second
	cfg.PoolPrePing = getenv("DB_POOL_PREPING", "true") == "true"
	cfg.ConnectTimeout = time.Duration(getenvInt("DB_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.ApplicationName = getenv("DB_APPLICATION_NAME", "textjournal_app")
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n != 0 {
			return n
		}
	}
	return def
}

func defaultPgURL() string {
	user := getenv("POSTGRES_USER", "postgres")
	pass := getenv("POSTGRES_PASSWORD", "postgres")
	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	db := getenv("POSTGRES_DB", "textjournal")
	return "postgresql://" + user + ":" + pass + "@" + host + ":" + port + "/" + db
}
