package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Storage backend names accepted in the STORAGE environment variable.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Storage       string // "file" or "postgres"
	DataFile      string // state document path when Storage is "file"
	DatabaseURL   string // required when Storage is "postgres"
	Owner         string // identity keying the cloud document store
	TelegramToken string // bot is disabled when empty
	LogLevel      string
	Port          string
}

// Load loads configuration from environment variables, reading a local .env
// file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage:       getEnvOrDefault("STORAGE", StorageFile),
		DataFile:      getEnvOrDefault("DATA_FILE", "data/wishlist.json"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Owner:         getEnvOrDefault("OWNER", "default"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		Port:          getEnvOrDefault("PORT", "8080"),
	}

	switch cfg.Storage {
	case StorageFile:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required when STORAGE=postgres")
		}
	default:
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageFile, StoragePostgres, cfg.Storage)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
