package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the xmarks backend.
type Config struct {
	// Server
	Port     string
	Host     string
	LogLevel string

	// Storage
	DatabaseURL string
	RedisURL    string

	// X OAuth2 application credentials
	XClientID     string
	XClientSecret string
	XRedirectURI  string
	XScopes       []string
	XAuthBaseURL  string
	XAPIBaseURL   string

	// Frontend redirect target for the OAuth callback
	FrontendURL string

	// Application tokens
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Provider token encryption key, 32 bytes hex-encoded
	TokenCipherKey string

	// Sync job
	SyncInterval   time.Duration
	SyncWorkers    int
	SyncMaxResults int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Port = getEnvOrDefault("PORT", "8080")
	cfg.Host = getEnvOrDefault("HOST", "0.0.0.0")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RedisURL = getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0")

	cfg.XClientID = os.Getenv("X_CLIENT_ID")
	if cfg.XClientID == "" {
		return nil, fmt.Errorf("X_CLIENT_ID is required")
	}
	cfg.XClientSecret = os.Getenv("X_CLIENT_SECRET")
	if cfg.XClientSecret == "" {
		return nil, fmt.Errorf("X_CLIENT_SECRET is required")
	}
	cfg.XRedirectURI = os.Getenv("X_REDIRECT_URI")
	if cfg.XRedirectURI == "" {
		return nil, fmt.Errorf("X_REDIRECT_URI is required")
	}
	cfg.XScopes = strings.Fields(getEnvOrDefault("X_SCOPES", "tweet.read users.read bookmark.read offline.access"))
	cfg.XAuthBaseURL = getEnvOrDefault("X_AUTH_BASE_URL", "https://x.com")
	cfg.XAPIBaseURL = getEnvOrDefault("X_API_BASE_URL", "https://api.x.com/2")

	cfg.FrontendURL = getEnvOrDefault("FRONTEND_URL", "http://localhost:3000")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	cfg.AccessTokenTTL, err = getDurationEnv("ACCESS_TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL, err = getDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.TokenCipherKey = os.Getenv("TOKEN_CIPHER_KEY")
	if cfg.TokenCipherKey == "" {
		return nil, fmt.Errorf("TOKEN_CIPHER_KEY is required")
	}

	cfg.SyncInterval, err = getDurationEnv("SYNC_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.SyncWorkers, err = getIntEnv("SYNC_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	cfg.SyncMaxResults, err = getIntEnv("SYNC_MAX_RESULTS", 100)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	key, err := hex.DecodeString(c.TokenCipherKey)
	if err != nil {
		return fmt.Errorf("TOKEN_CIPHER_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("TOKEN_CIPHER_KEY must decode to 32 bytes, got %d", len(key))
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}

	if c.AccessTokenTTL < time.Minute {
		return fmt.Errorf("access token TTL must be at least 1 minute, got %v", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("refresh token TTL (%v) must exceed access token TTL (%v)", c.RefreshTokenTTL, c.AccessTokenTTL)
	}

	if c.SyncInterval < time.Minute {
		return fmt.Errorf("sync interval must be at least 1 minute, got %v", c.SyncInterval)
	}
	if c.SyncWorkers < 1 {
		return fmt.Errorf("sync workers must be at least 1, got %d", c.SyncWorkers)
	}
	if c.SyncMaxResults < 1 || c.SyncMaxResults > 400 {
		return fmt.Errorf("sync max results must be between 1 and 400, got %d", c.SyncMaxResults)
	}

	if len(c.XScopes) == 0 {
		return fmt.Errorf("at least one X scope is required")
	}

	return nil
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
