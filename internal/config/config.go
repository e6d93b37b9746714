package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port            int
	DevMode         bool
	LogLevel        string
	DatabasePath    string
	URABaseURL      string
	URAAccessKey    string
	CacheTTLHours   int
	CAGRWindowYears int
	RefreshSchedule string // cron expression (with seconds field)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/propertypulse.db"),
		URABaseURL:      getEnv("URA_BASE_URL", "https://www.ura.gov.sg/uraDataService"),
		URAAccessKey:    getEnv("URA_ACCESS_KEY", ""),
		CacheTTLHours:   getEnvAsInt("CACHE_TTL_HOURS", 12),
		CAGRWindowYears: getEnvAsInt("CAGR_WINDOW_YEARS", 5),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 30 2 * * *"), // 02:30 daily
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.CacheTTLHours < 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must not be negative")
	}
	if c.CAGRWindowYears < 1 {
		return fmt.Errorf("CAGR_WINDOW_YEARS must be at least 1")
	}

	// Note: URA_ACCESS_KEY is optional so the server can come up and serve
	// a persisted snapshot without live data access.
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
