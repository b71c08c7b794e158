package config

import (
	"strings"
	"time"
)

// ObservabilityConfig groups configuration that controls metrics and error telemetry.
type ObservabilityConfig struct {
	Metrics   ObservabilityMetricsConfig
	Telemetry TelemetryConfig `envPrefix:"TELEMETRY_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Telemetry.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// TelemetryConfig controls delivery of error reports and breadcrumbs to a
// collector endpoint.
type TelemetryConfig struct {
	DSN         string        `env:"DSN"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	Release     string        `env:"RELEASE"`
	Timeout     time.Duration `env:"TIMEOUT"     envDefault:"5s"`
	RetryLimit  int           `env:"RETRY_LIMIT" envDefault:"3"`
}

// Sanitize normalises telemetry configuration values.
func (c *TelemetryConfig) Sanitize() {
	c.DSN = strings.TrimSpace(c.DSN)
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
}

// IsEnabled reports whether reports are shipped remotely.
func (c *TelemetryConfig) IsEnabled() bool {
	return c.DSN != ""
}
