package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ServerAddress string
	Environment   string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration

	// Storage settings
	DataDir    string
	BackupsDir string

	// Remote sync settings
	SyncEndpoint string
	SyncTimeout  time.Duration

	// Auth settings (optional; empty secret disables auth)
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableCORS bool

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8000"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		ReadTimeout:   getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:  getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		DataDir:       getEnv("DATA_DIR", "data"),
		BackupsDir:    getEnv("BACKUPS_DIR", "backups"),
		SyncEndpoint:  getEnv("SYNC_ENDPOINT", ""),
		SyncTimeout:   getDurationEnv("SYNC_TIMEOUT", 10*time.Second),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "bookgraph"),
		EnableCORS:    getBoolEnv("ENABLE_CORS", true),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
