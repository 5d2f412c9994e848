package config

import (
	"os"
	"strconv"
)

// Config holds every runtime setting for the registration service.  All
// values come from the environment; Load panics on a missing required
// key so a misconfigured instance dies at startup instead of limping.
type Config struct {
	Env  string
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret string

	// Payment gateway settings.  The secret key may be empty, in which
	// case paid checkouts are rejected with a gateway-unavailable error
	// while free registrations keep working.
	StripeSecretKey     string
	StripeWebhookSecret string
	PlatformFeePercent  int64
	PlatformAccountID   string
	DefaultCurrency     string
	SuccessURL          string
	CancelURL           string

	ReservationTTLMinutes int
	SweepIntervalSeconds  int

	TicketBaseURL string

	RabbitMQURL string

	LogLevel string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Env:  getenv("APP_ENV", "development"),
		Port: getenv("PORT", "8080"),

		DBUser: must("DB_USER"),
		DBPass: must("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: getenv("DB_PORT", "3306"),
		DBName: must("DB_NAME"),

		JWTSecret: must("JWT_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PlatformFeePercent:  int64(getenvInt("PLATFORM_FEE_PERCENT", 0)),
		PlatformAccountID:   os.Getenv("PLATFORM_ACCOUNT_ID"),
		DefaultCurrency:     getenv("DEFAULT_CURRENCY", "usd"),
		SuccessURL:          getenv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CancelURL:           getenv("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),

		ReservationTTLMinutes: getenvInt("RESERVATION_TTL_MINUTES", 15),
		SweepIntervalSeconds:  getenvInt("SWEEP_INTERVAL_SECONDS", 60),

		TicketBaseURL: getenv("TICKET_BASE_URL", "http://localhost:3000"),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}
}

func must(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("missing required environment variable: " + key)
	}
	return v
}

// getenv lives in cache.go and is shared across the config loaders.

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic("invalid integer for environment variable " + key + ": " + v)
	}
	return n
}
