package config

import "strings"

// GoogleConfig contains the OAuth/OIDC settings for Google sign-in.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://127.0.0.1:8765/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid email profile"`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com"`
}

// Enabled reports whether Google sign-in can be offered.
func (c *GoogleConfig) Enabled() bool {
	return c.ClientID != ""
}

// Scopes splits Scope on whitespace.
func (c *GoogleConfig) Scopes() []string {
	return strings.Fields(c.Scope)
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Google GoogleConfig `envPrefix:"GOOGLE_"`
}

// Sanitize trims whitespace from credentials and URLs.
func (c *AuthConfig) Sanitize() {
	g := &c.Google
	g.ClientID = strings.TrimSpace(g.ClientID)
	g.ClientSecret = strings.TrimSpace(g.ClientSecret)
	g.RedirectURL = strings.TrimSpace(g.RedirectURL)
	g.DiscoveryURL = strings.TrimRight(strings.TrimSpace(g.DiscoveryURL), "/")
	if strings.TrimSpace(g.Scope) == "" {
		g.Scope = "openid email profile"
	}
}
