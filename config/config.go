package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - backend.go: Product backend endpoint and request timeouts
//   - auth.go: Google and Apple sign-in configuration
//   - storage.go: Device store and lookup cache configuration
//   - enrichment.go: AI nutrition analysis configuration
//   - scanner.go: Barcode scanner filtering
//   - observability.go: Metrics and telemetry configuration
type AppConfig struct {
	// LogLevel sets the minimum slog level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Backend       BackendConfig `envPrefix:"BACKEND_"`
	Auth          AuthConfig
	Storage       StorageConfig
	Redis         RedisConfig `envPrefix:"REDIS_"`
	LookupCache   LookupCacheConfig
	Enrichment    EnrichmentConfig
	Scanner       ScannerConfig `envPrefix:"SCANNER_"`
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Backend.Sanitize()
	c.Auth.Sanitize()
	c.Storage.Sanitize()
	c.LookupCache.Sanitize()
	c.Enrichment.Sanitize()
	c.Scanner.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports configuration that cannot be repaired by Sanitize.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Enrichment.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Scanner.ParsedRegion(); err != nil {
		errs = append(errs, fmt.Errorf("scanner region: %w", err))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
