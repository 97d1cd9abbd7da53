// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string
	AllowedOrigin  string // Extension origin allowed on the websocket bridge; "" = dev, allow all.
	PendingLinkTTL time.Duration
	OpenTabTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "./data/chatgrove.db"),
		AllowedOrigin:  getEnv("ALLOWED_ORIGIN", ""),
		PendingLinkTTL: getEnvDuration("PENDING_LINK_TTL", 15*time.Minute),
		OpenTabTimeout: getEnvDuration("OPEN_TAB_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.PendingLinkTTL <= 0 {
		return fmt.Errorf("PENDING_LINK_TTL must be > 0")
	}
	if c.OpenTabTimeout <= 0 {
		return fmt.Errorf("OPEN_TAB_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AllowedOrigin == "" ||
		strings.Contains(c.AllowedOrigin, "localhost") ||
		strings.Contains(c.AllowedOrigin, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
