package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration.
// Database, cache and metrics are optional: an empty DATABASE_URL or
// REDIS_URL disables the archive or the cache.
type Config struct {
	// Environment
	Environment string
	Port        string

	// Observability
	LogLevel       string // debug, info, warn, error
	SentryDSN      string // Sentry DSN for error tracking
	MetricsEnabled bool   // CloudWatch metrics (needs AWS credentials)

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	// - "jwt": Bearer tokens signed with JWT_SECRET
	AuthMode  string
	JWTSecret string

	// Storage
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	// Aria tempo of Goldberg requests that name none
	DefaultBPM float64
}

func Load() *Config {
	return &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		MetricsEnabled: getEnv("METRICS_ENABLED", "false") == "true",
		AuthMode:       getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		CacheTTL:       getDuration("CACHE_TTL", 24*time.Hour),
		DefaultBPM:     getFloat("DEFAULT_BPM", 60),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

// IsGatewayMode returns true if running behind an auth gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsJWTMode returns true if requests carry bearer tokens
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}
