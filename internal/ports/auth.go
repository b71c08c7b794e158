package ports

// Package ports defines interfaces (hexagonal ports) for the client core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// BeginOutput is what the caller needs to send the user to the IdP and
// later complete the flow.
type BeginOutput struct {
	AuthURL  string
	State    string
	Nonce    string
	Verifier string // PKCE code verifier
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code     string
	State    string
	Nonce    string
	Verifier string
}

// IdentityProvider runs the browser sign-in flow against an IdP.
type IdentityProvider interface {
	// Begin starts the login flow and returns the provider auth URL with the values needed to finish it.
	Begin(ctx context.Context, in BeginInput) (BeginOutput, error)

	// Exchange completes the login flow, verifying the ID token nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// CredentialExchanger trades provider credentials for a backend session.
type CredentialExchanger interface {
	ExchangeGoogle(ctx context.Context, accessToken string) (domainauth.Session, error)
	ExchangeApple(ctx context.Context, cred domainauth.AppleCredential) (domainauth.Session, error)
}

// AccountService manages the remote account.
type AccountService interface {
	DeleteAccount(ctx context.Context, token string) error
}
