package app

import (
	"os"
	"strings"
	"time"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	Store       string // postgres or memory

	// Logging
	LogLevel  string
	LogFormat string // json or console

	// Error monitoring
	SentryDSN   string
	Environment string

	// Pricing
	BillingTimezone string
	MaxCallDuration time.Duration
	AuditInterval   time.Duration

	// Notifications
	DiscordWebhookURL string
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		Store:       strings.ToLower(getenv("STORE", StorePostgres)),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		SentryDSN:   getenv("SENTRY_DSN", ""),
		Environment: getenv("ENVIRONMENT", "development"),

		BillingTimezone: getenv("BILLING_TIMEZONE", "UTC"),
		// A month-long call is already an anomaly; the bound keeps pricing cheap.
		MaxCallDuration: getenvDurationClamped("MAX_CALL_DURATION", 31*24*time.Hour, 0, 366*24*time.Hour),
		AuditInterval:   getenvDurationClamped("AUDIT_INTERVAL", 15*time.Minute, time.Minute, 24*time.Hour),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvDurationClamped reads a Go duration string. Unparseable values fall
// back to def; parsed values are clamped to [min, max].
func getenvDurationClamped(k string, def, min, max time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
