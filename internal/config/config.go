package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string
	DBDSN        string
	JWTSecret    string
	LogLevel     slog.Level

	// Proof-of-payment artifacts
	StoragePath   string
	MaxProofBytes int64

	// Notification delivery
	NotifyTimeout     time.Duration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	// Availability cache (disabled when RedisAddr is empty)
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AvailabilityCacheTTL time.Duration

	// Lifecycle events (disabled when RabbitMQURL is empty)
	RabbitMQURL string

	// Pending reservation expiry (disabled when PendingTTL is zero)
	PendingTTL     time.Duration
	ExpirySchedule string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required to validate bearer tokens issued by the identity provider
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg.StoragePath = getEnv("STORAGE_PATH", "./data")
	maxProof, err := getEnvAsInt("MAX_PROOF_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PROOF_BYTES: %w", err)
	}
	if maxProof <= 0 {
		return nil, fmt.Errorf("MAX_PROOF_BYTES must be positive")
	}
	cfg.MaxProofBytes = int64(maxProof)

	// Delivery timeout bounds the Completion Gate's wait on the notifier.
	cfg.NotifyTimeout, err = getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}

	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.SendGridFromEmail = os.Getenv("SENDGRID_FROM_EMAIL")
	cfg.SendGridFromName = getEnv("SENDGRID_FROM_NAME", "Memorial Park Reservations")
	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.AvailabilityCacheTTL, err = getEnvAsDuration("AVAILABILITY_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")

	// Pending reservations never expire unless PENDING_TTL is set explicitly.
	cfg.PendingTTL, err = getEnvAsDuration("PENDING_TTL", 0)
	if err != nil {
		return nil, err
	}
	if cfg.PendingTTL < 0 {
		return nil, fmt.Errorf("PENDING_TTL cannot be negative")
	}
	cfg.ExpirySchedule = getEnv("EXPIRY_SCHEDULE", "@every 15m")

	if cfg.IsProduction {
		if cfg.ProdOrigins == "" {
			return nil, fmt.Errorf("PROD_ORIGINS is required in production")
		}
		// Confirmations gate every client booking; logging them is not delivery.
		if !cfg.SendGridEnabled() {
			return nil, fmt.Errorf("SENDGRID_API_KEY and SENDGRID_FROM_EMAIL are required in production")
		}
	}

	return cfg, nil
}

// SendGridEnabled reports whether email delivery is configured.
func (c *Config) SendGridEnabled() bool {
	return c.SendGridAPIKey != "" && c.SendGridFromEmail != ""
}

// TwilioEnabled reports whether SMS delivery is configured.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses a time.Duration (e.g. "15m", "72h").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
