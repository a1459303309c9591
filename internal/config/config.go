// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. Loaded once at startup and
// treated as immutable for the lifetime of a scoring session; live model
// reloads go through the scoring service's atomic pipeline swap instead of
// mutating this struct.
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Storage
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)
	RedisURL    string // Redis URL for the aggregates cache (optional, cache disabled if not set)

	// Scoring
	ModelsDir          string // directory of model artifacts (optional, rules-only if empty)
	AlertThreshold     int    // alert created when score >= this
	MediumThreshold    int    // display level MEDIUM at this score
	HighThreshold      int    // display level HIGH at this score
	HighRiskCategories []string
	HighRiskZones      []string

	// Security
	APIKey       string // empty = auth bypass (development only)
	RateLimitRPM int

	// Observability
	OTLPEndpoint string
}

// Defaults.
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultAlertThreshold  = 70
	DefaultMediumThreshold = 50
	DefaultHighThreshold   = 80
	DefaultRateLimitRPM    = 120
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RedisURL:        os.Getenv("REDIS_URL"),    // Optional
		ModelsDir:       os.Getenv("MODELS_DIR"),   // Optional, rules-only if not set
		AlertThreshold:  int(getEnvInt64("ALERT_THRESHOLD", DefaultAlertThreshold)),
		MediumThreshold: int(getEnvInt64("MEDIUM_THRESHOLD", DefaultMediumThreshold)),
		HighThreshold:   int(getEnvInt64("HIGH_THRESHOLD", DefaultHighThreshold)),
		APIKey:          os.Getenv("API_KEY"),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		HighRiskCategories: getEnvCSV("HIGH_RISK_CATEGORIES"),
		HighRiskZones:      getEnvCSV("HIGH_RISK_ZONES"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks threshold sanity. All thresholds live on the canonical
// 0-100 score scale.
func (c *Config) Validate() error {
	if c.AlertThreshold < 0 || c.AlertThreshold > 100 {
		return fmt.Errorf("ALERT_THRESHOLD must be in [0,100], got %d", c.AlertThreshold)
	}
	if c.MediumThreshold < 0 || c.MediumThreshold > 100 {
		return fmt.Errorf("MEDIUM_THRESHOLD must be in [0,100], got %d", c.MediumThreshold)
	}
	if c.HighThreshold < 0 || c.HighThreshold > 100 {
		return fmt.Errorf("HIGH_THRESHOLD must be in [0,100], got %d", c.HighThreshold)
	}
	if c.MediumThreshold >= c.HighThreshold {
		return fmt.Errorf("MEDIUM_THRESHOLD (%d) must be below HIGH_THRESHOLD (%d)", c.MediumThreshold, c.HighThreshold)
	}
	if c.IsProduction() && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvCSV parses a comma-separated env var into trimmed values.
// Returns nil when unset so callers can apply their own defaults.
func getEnvCSV(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
