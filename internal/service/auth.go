package service

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider  ports.IdentityProvider    // Optional: nil disables Google sign-in
	Exchanger ports.CredentialExchanger // Required
	Session   *SessionState             // Required
}

// AuthService signs users in by trading provider credentials for a backend
// session and storing it in SessionState.
type AuthService struct {
	provider  ports.IdentityProvider
	exchanger ports.CredentialExchanger
	session   *SessionState
}

// ErrGoogleDisabled is returned when no identity provider is configured.
var ErrGoogleDisabled = errors.New("google sign-in is not configured")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Exchanger == nil || opts.Session == nil {
		panic("service: AuthService requires Exchanger and Session")
	}
	return &AuthService{
		provider:  opts.Provider,
		exchanger: opts.Exchanger,
		session:   opts.Session,
	}
}

// BeginGoogle starts the browser sign-in flow. The returned values must be
// passed back to CompleteGoogle.
func (s *AuthService) BeginGoogle(ctx context.Context, redirectURL string) (ports.BeginOutput, error) {
	if s.provider == nil {
		return ports.BeginOutput{}, ErrGoogleDisabled
	}
	if redirectURL == "" {
		return ports.BeginOutput{}, errors.New("redirect URL is required")
	}
	out, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return ports.BeginOutput{}, fmt.Errorf("begin auth flow: %w", err)
	}
	return out, nil
}

// CompleteGoogleInput groups parameters for completing the Google flow.
type CompleteGoogleInput struct {
	Pending ports.BeginOutput
	Code    string
	State   string
}

// CompleteGoogle exchanges the authorization code for an identity, trades
// its access token for a backend session and signs in.
func (s *AuthService) CompleteGoogle(ctx context.Context, in CompleteGoogleInput) (domainauth.Session, error) {
	if s.provider == nil {
		return domainauth.Session{}, ErrGoogleDisabled
	}
	if in.Code == "" {
		return domainauth.Session{}, errors.New("authorization code is required")
	}
	if in.State == "" || in.State != in.Pending.State {
		return domainauth.Session{}, errors.New("state parameter does not match")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:     in.Code,
		State:    in.State,
		Nonce:    in.Pending.Nonce,
		Verifier: in.Pending.Verifier,
	})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if identity.AccessToken == "" {
		return domainauth.Session{}, errors.New("identity provider returned no access token")
	}

	sess, err := s.exchanger.ExchangeGoogle(ctx, identity.AccessToken)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange google token: %w", err)
	}
	return s.signIn(ctx, sess)
}

// LoginApple trades a Sign in with Apple credential for a backend session.
func (s *AuthService) LoginApple(ctx context.Context, cred domainauth.AppleCredential) (domainauth.Session, error) {
	if cred.IdentityToken == "" {
		return domainauth.Session{}, apperrors.ValidationField("identityToken", "identity token is required")
	}
	sess, err := s.exchanger.ExchangeApple(ctx, cred)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange apple credential: %w", err)
	}
	return s.signIn(ctx, sess)
}

func (s *AuthService) signIn(ctx context.Context, sess domainauth.Session) (domainauth.Session, error) {
	if err := s.session.Login(ctx, sess.User, sess.Token); err != nil {
		return domainauth.Session{}, fmt.Errorf("login: %w", err)
	}
	return s.session.Snapshot(), nil
}
