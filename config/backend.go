package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultBackendTimeout = 12 * time.Second

// BackendConfig points the client at the product backend.
type BackendConfig struct {
	URL       string        `env:"URL"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"12s"`
	UserAgent string        `env:"USER_AGENT" envDefault:"nutrinom-go"`
}

// Sanitize trims the base URL and enforces a positive timeout.
func (c *BackendConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultBackendTimeout
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = "nutrinom-go"
	}
}

// Validate requires an absolute http(s) base URL.
func (c *BackendConfig) Validate() error {
	if c.URL == "" {
		return errors.New("BACKEND_URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("parse BACKEND_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BACKEND_URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("BACKEND_URL must include a host")
	}
	return nil
}
