// Package config loads application configuration from environment
// variables, with a .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Finance server (the upstream REST collaborator)
	FinanceServerURL string
	FinanceAPIKey    string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience (reads only; mutations are never auto-retried)
	ReadMaxAttempts int
	ReadBaseBackoff time.Duration
	MaxConcurrency  int

	// Cache
	CacheTTL time.Duration

	// Auto-refresh
	RefreshInterval time.Duration
	RefreshEnabled  bool

	// Local state
	StatePath string

	// CORS origins allowed to call the API from a browser.
	CORSAllowedOrigins []string

	// Zakat
	ZakatNisab decimal.Decimal

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is applied first (without
// overriding variables already set in the environment).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FinanceServerURL: getEnv("FINANCE_SERVER_URL", "http://localhost:8081"),
		FinanceAPIKey:    getEnv("FINANCE_API_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		ReadMaxAttempts: getEnvInt("READ_MAX_ATTEMPTS", 3),
		ReadBaseBackoff: getEnvDuration("READ_BASE_BACKOFF", 100*time.Millisecond),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", time.Minute),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 30*time.Second),
		RefreshEnabled:  getEnv("REFRESH_ENABLED", "true") == "true",

		StatePath: getEnv("STATE_PATH", "finmate-state.json"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		ZakatNisab: getEnvDecimal("ZAKAT_NISAB", "5000"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}
