package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"

	"github.com/dadosbr/agregador/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from a .env file (when present) and the
// environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if config.ServerPort < 1 || config.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", config.ServerPort)
	}

	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	if config.RetryAttempts > 10 {
		config.RetryAttempts = 10
	}

	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 30 * time.Second
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = time.Second
	}

	if config.PageCap < 1 {
		config.PageCap = 1
	}
	if config.PageCap > 50 {
		config.PageCap = 50
	}
	if config.PageDelay < 0 {
		config.PageDelay = 0
	}

	if config.SearchTimeout <= 0 {
		config.SearchTimeout = 30 * time.Second
	}

	if config.DefaultResultLimit < 1 {
		config.DefaultResultLimit = 20
	}
	if config.DefaultResultLimit > 100 {
		config.DefaultResultLimit = 100
	}

	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}

	return nil
}
