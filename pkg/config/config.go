package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Identities
	AdminAddress     common.Address
	DustTokenAddress common.Address

	// Read-surface cache
	CacheTTL         time.Duration
	CacheNumCounters int64
	CacheMaxCost     int64

	// Websocket fill feed
	WSSendBufferSize int

	// Storage
	StorageMode             string // "postgres" or "console"
	StorageBreakerThreshold int
	StorageBreakerCooldown  time.Duration
	PostgresHost            string
	PostgresPort            string
	PostgresUser            string
	PostgresPass            string
	PostgresDB              string
	PostgresSSL             string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Identity defaults. The Dust token address only identifies the
		// synthetic unit in the ledger; any nonzero value works.
		AdminAddress:     common.HexToAddress(getEnvOrDefault("ADMIN_ADDRESS", "0x0000000000000000000000000000000000000001")),
		DustTokenAddress: common.HexToAddress(getEnvOrDefault("DUST_TOKEN_ADDRESS", "0x00000000000000000000000000000000000d0057")),

		// Cache defaults
		CacheTTL:         getDurationOrDefault("CACHE_TTL", 5*time.Second),
		CacheNumCounters: int64(getIntOrDefault("CACHE_NUM_COUNTERS", 10_000)),
		CacheMaxCost:     int64(getIntOrDefault("CACHE_MAX_COST", 1_000)),

		// Websocket defaults
		WSSendBufferSize: getIntOrDefault("WS_SEND_BUFFER_SIZE", 64),

		// Storage defaults
		StorageMode:             getEnvOrDefault("STORAGE_MODE", "console"),
		StorageBreakerThreshold: getIntOrDefault("STORAGE_BREAKER_THRESHOLD", 5),
		StorageBreakerCooldown:  getDurationOrDefault("STORAGE_BREAKER_COOLDOWN", 30*time.Second),
		PostgresHost:            getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:            getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:            getEnvOrDefault("POSTGRES_USER", "timeflow"),
		PostgresPass:            getEnvOrDefault("POSTGRES_PASSWORD", "timeflow123"),
		PostgresDB:              getEnvOrDefault("POSTGRES_DB", "timeflow"),
		PostgresSSL:             getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.AdminAddress == (common.Address{}) {
		return fmt.Errorf("ADMIN_ADDRESS cannot be the zero address")
	}

	if c.DustTokenAddress == (common.Address{}) {
		return fmt.Errorf("DUST_TOKEN_ADDRESS cannot be the zero address")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.CacheTTL)
	}

	if c.StorageBreakerThreshold <= 0 {
		return fmt.Errorf("STORAGE_BREAKER_THRESHOLD must be positive, got %d", c.StorageBreakerThreshold)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
