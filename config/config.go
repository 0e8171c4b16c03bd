package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Bounds for validated settings
const (
	BcryptCostMin = 10 // security minimum
	BcryptCostMax = 16 // latency limit

	StatementTimeoutMin = time.Second
	StatementTimeoutMax = 5 * time.Minute
)

// Config holds all application configuration
type Config struct {
	// Application configuration
	App AppConfig

	// Database configuration
	Database DatabaseConfig

	// API key configuration
	APIKey APIKeyConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name       string
	Production bool
	LogLevel   string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL              string
	PoolSize         int
	PoolTimeout      time.Duration
	StatementTimeout time.Duration
}

// APIKeyConfig holds API key issuance and validation configuration
type APIKeyConfig struct {
	// MinLength is the minimum length a presented key must have before
	// the validator even derives a lookup prefix.
	MinLength int

	// BcryptCost is the bcrypt work factor used when hashing new keys.
	BcryptCost int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	RequestTimeout     time.Duration
	MaxRequestBytes    int64
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:       getEnvString("APP_NAME", "keygate"),
			Production: getEnvBool("PRODUCTION", false),
			LogLevel:   getEnvString("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:              os.Getenv("DATABASE_URL"),
			PoolSize:         getEnvInt("DATABASE_POOL_SIZE", 5),
			PoolTimeout:      time.Duration(getEnvInt("DATABASE_POOL_TIMEOUT_SECONDS", 30)) * time.Second,
			StatementTimeout: time.Duration(getEnvInt("DATABASE_STATEMENT_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		APIKey: APIKeyConfig{
			MinLength:  getEnvInt("API_KEY_MIN_LENGTH", 32),
			BcryptCost: getEnvInt("BCRYPT_COST", 12),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			RequestTimeout:     time.Duration(getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxRequestBytes:    int64(getEnvInt("HTTP_MAX_REQUEST_BYTES", 10*1024*1024)),
			CORSAllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey.BcryptCost < BcryptCostMin {
		return fmt.Errorf("BCRYPT_COST must be at least %d (security minimum), got %d", BcryptCostMin, c.APIKey.BcryptCost)
	}
	if c.APIKey.BcryptCost > BcryptCostMax {
		return fmt.Errorf("BCRYPT_COST must be at most %d (latency limit), got %d", BcryptCostMax, c.APIKey.BcryptCost)
	}

	if c.APIKey.MinLength <= 0 {
		return fmt.Errorf("API_KEY_MIN_LENGTH must be positive, got %d", c.APIKey.MinLength)
	}

	if c.Database.PoolSize <= 0 {
		return fmt.Errorf("DATABASE_POOL_SIZE must be positive, got %d", c.Database.PoolSize)
	}
	if c.Database.StatementTimeout < StatementTimeoutMin {
		return fmt.Errorf("DATABASE_STATEMENT_TIMEOUT_MS must be at least %s, got %s", StatementTimeoutMin, c.Database.StatementTimeout)
	}
	if c.Database.StatementTimeout > StatementTimeoutMax {
		return fmt.Errorf("DATABASE_STATEMENT_TIMEOUT_MS must be at most %s, got %s", StatementTimeoutMax, c.Database.StatementTimeout)
	}

	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS must be positive, got %s", c.HTTP.RequestTimeout)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// NewTestConfig returns a configuration suitable for tests.
// Bcrypt runs at the minimum cost so hashing does not dominate test time.
func NewTestConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "keygate-test",
			LogLevel: "debug",
		},
		Database: DatabaseConfig{
			PoolSize:         2,
			PoolTimeout:      5 * time.Second,
			StatementTimeout: 5 * time.Second,
		},
		APIKey: APIKeyConfig{
			MinLength:  32,
			BcryptCost: BcryptCostMin,
		},
		HTTP: HTTPConfig{
			Addr:            ":0",
			RequestTimeout:  5 * time.Second,
			MaxRequestBytes: 1 << 20,
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}
