package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnrichmentMode selects which service produces the AI nutrition analysis.
type EnrichmentMode string

const (
	// EnrichmentModeBackend asks the product backend (/api/llm).
	EnrichmentModeBackend EnrichmentMode = "backend"
	// EnrichmentModeVertex calls Gemini on Vertex AI directly.
	EnrichmentModeVertex EnrichmentMode = "vertex"
	// EnrichmentModeOff skips enrichment entirely.
	EnrichmentModeOff EnrichmentMode = "off"
)

// UnmarshalText implements encoding.TextUnmarshaler for EnrichmentMode.
func (m *EnrichmentMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "backend", "vertex", "off":
		*m = EnrichmentMode(v)
		return nil
	default:
		return fmt.Errorf("invalid EnrichmentMode: %q (valid options: backend, vertex, off)", v)
	}
}

// VertexConfig configures the Vertex AI Gemini client.
type VertexConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	Location        string `env:"LOCATION"         envDefault:"us-central1"`
	Model           string `env:"MODEL"            envDefault:"gemini-1.5-flash"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
}

// EnrichmentConfig groups enrichment settings.
type EnrichmentConfig struct {
	Mode    EnrichmentMode `env:"ENRICHMENT_MODE"    envDefault:"backend"`
	Timeout time.Duration  `env:"ENRICHMENT_TIMEOUT" envDefault:"20s"`
	Vertex  VertexConfig   `envPrefix:"VERTEX_"`
}

// Sanitize applies defaults.
func (c *EnrichmentConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = EnrichmentModeBackend
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	c.Vertex.ProjectID = strings.TrimSpace(c.Vertex.ProjectID)
	c.Vertex.CredentialsFile = strings.TrimSpace(c.Vertex.CredentialsFile)
}

// Validate requires a project when Vertex mode is selected.
func (c *EnrichmentConfig) Validate() error {
	if c.Mode == EnrichmentModeVertex && c.Vertex.ProjectID == "" {
		return errors.New("VERTEX_PROJECT_ID is required when ENRICHMENT_MODE=vertex")
	}
	return nil
}
