package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer    string        // Issuer claim stamped into session tokens
	JWTSecret string        // Required: HMAC secret for session tokens (min 32 bytes)
	TokenTTL  time.Duration // Session token lifetime (default: 1h)

	DatabaseFile   string // Path to SQLite database file (default: ./filecrate.db)
	BlobDir        string // Directory for stored file content (default: ./data)
	PepperFile     string // Path to the password-hashing pepper file (default: ./pepper)
	MaxUploadBytes int64  // Upload request body cap (default: 256 MiB)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Blob/temp reconciliation interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("FILECRATE_ISSUER", "filecrate"),
		JWTSecret:            os.Getenv("FILECRATE_JWT_SECRET"),
		TokenTTL:             getEnvDurationOrDefault("FILECRATE_TOKEN_TTL", time.Hour),
		DatabaseFile:         getEnvOrDefault("FILECRATE_DATABASE_FILE", "filecrate.db"),
		BlobDir:              getEnvOrDefault("FILECRATE_BLOB_DIR", "data"),
		PepperFile:           getEnvOrDefault("FILECRATE_PEPPER_FILE", "pepper"),
		MaxUploadBytes:       getEnvInt64OrDefault("FILECRATE_MAX_UPLOAD_BYTES", 256<<20),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
