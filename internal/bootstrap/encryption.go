package bootstrap

import (
	"log/slog"

	"github.com/nutrinom/nutrinom-go/internal/data/cryptoutil"
)

// CreateSealer builds the sealer that protects the stored bearer token.
// An empty or unusable key falls back to the plain sealer with a warning so a
// misconfigured key never locks the user out of signing in.
//
//nolint:ireturn // Returning interface is intentional for sealer abstraction
func CreateSealer(key string, logger *slog.Logger) cryptoutil.Sealer {
	if key == "" {
		if logger != nil {
			logger.Warn("store encryption key is empty, session token is stored unsealed")
		}
		return cryptoutil.PlainSealer{}
	}

	sealer, err := cryptoutil.NewSealer(key)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to create sealer, session token is stored unsealed", "error", err)
		}
		return cryptoutil.PlainSealer{}
	}

	return sealer
}
