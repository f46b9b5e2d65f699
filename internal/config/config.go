package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret        string
	JwtRefreshSecret string
	JwtTTL           time.Duration
	JwtRefreshTTL    time.Duration
	CaptchaTokenTTL  time.Duration

	// Refresh cookie
	RefreshCookieName string
	CookieSecure      bool

	// Server
	ApiPort        string
	ServiceApiPort string
	ClientURL      string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool   // also store outgoing emails in Redis for tests
	LogEmails       string // file path that receives a copy of every email

	// Images
	StorageBackend    string // "cloudinary" or "s3"
	CloudinaryURL     string
	CloudinaryFolder  string
	ImageMaxDimension int
	ImageMaxSizeMB    int
	MaxPropertyPhotos int

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string

	// Geocoding
	GoogleMapsAPIKey string

	// App Defaults
	AppName          string
	PasswordRegexp   string
	GetCacheTTL      time.Duration
	ResetPasswordTTL time.Duration

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getDuration := func(key, defaultValue string, unit time.Duration) (time.Duration, error) {
		v, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(v) * unit, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "realty")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.JwtRefreshSecret = getEnv("JWT_REFRESH_SECRET", "")
	if cfg.JwtRefreshSecret == "" {
		cfg.JwtRefreshSecret = cfg.JwtSecret + "-refresh"
	}
	cfg.RefreshCookieName = getEnv("REFRESH_COOKIE_NAME", "refreshToken")
	cfg.CookieSecure = getEnv("COOKIE_SECURE", "false") == "true"
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.ClientURL = getEnv("CLIENT_URL", "http://localhost:5173")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@realty.example.com")
	cfg.MockServices = getEnv("MOCK_SERVICES", "false") == "true"
	cfg.LogEmails = getEnv("LOG_EMAILS", "")
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", "cloudinary")
	cfg.CloudinaryURL = getEnv("CLOUDINARY_URL", "")
	cfg.CloudinaryFolder = getEnv("CLOUDINARY_FOLDER", "realty/properties")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")
	cfg.GoogleMapsAPIKey = getEnv("GOOGLE_MAPS_API_KEY", "")
	cfg.AppName = getEnv("APP_NAME", "Realty")
	cfg.PasswordRegexp = getEnv("PASSWORD_REGEXP", "^.{6,}$")

	if cfg.StorageBackend != "cloudinary" && cfg.StorageBackend != "s3" {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q (expected cloudinary or s3)", cfg.StorageBackend)
	}

	ints := []struct {
		dst      *int
		key, def string
	}{
		{&cfg.RedisDB, "REDIS_DB", "0"},
		{&cfg.SmtpPort, "SMTP_PORT", "587"},
		{&cfg.ImageMaxDimension, "IMAGE_MAX_DIMENSION", "2048"},
		{&cfg.ImageMaxSizeMB, "IMAGE_MAX_SIZE_MB", "10"},
		{&cfg.MaxPropertyPhotos, "MAX_PROPERTY_PHOTOS", "10"},
		{&cfg.RateLimitSoftBucketSize, "RATE_LIMIT_SOFT_BUCKET_SIZE", "5"},
		{&cfg.RateLimitSoftRefillRate, "RATE_LIMIT_SOFT_REFILL_RATE", "1"},
		{&cfg.RateLimitHardBucketSize, "RATE_LIMIT_HARD_BUCKET_SIZE", "20"},
		{&cfg.RateLimitHardRefillRate, "RATE_LIMIT_HARD_REFILL_RATE", "5"},
	}
	for _, f := range ints {
		if *f.dst, err = getInt(f.key, f.def); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		dst      *time.Duration
		key, def string
		unit     time.Duration
	}{
		{&cfg.JwtTTL, "JWT_TTL_SECONDS", "900", time.Second},
		{&cfg.JwtRefreshTTL, "JWT_REFRESH_TTL_HOURS", "168", time.Hour},
		{&cfg.CaptchaTokenTTL, "CAPTCHA_TOKEN_TTL", "1200", time.Second},
		{&cfg.GetCacheTTL, "GET_CACHE_TTL_SECONDS", "60", time.Second},
		{&cfg.ResetPasswordTTL, "RESET_PASSWORD_TTL_MINUTES", "60", time.Minute},
	}
	for _, f := range durations {
		if *f.dst, err = getDuration(f.key, f.def, f.unit); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
