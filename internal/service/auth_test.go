package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nutrinom/nutrinom-go/internal/adapters/backend"
	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/mocks"
	"github.com/nutrinom/nutrinom-go/internal/mocks/fakes"
	"github.com/nutrinom/nutrinom-go/internal/ports"
	"github.com/nutrinom/nutrinom-go/internal/testutil/backendtest"
)

func newAuthFixture(t *testing.T, provider ports.IdentityProvider) (*AuthService, *SessionState, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	session := NewSessionState(SessionStateOptions{
		Store:   fakes.NewMemoryStore(nil),
		Account: client,
		Sealer:  testSealer(t),
	})
	svc := NewAuthService(AuthServiceOptions{
		Provider:  provider,
		Exchanger: client,
		Session:   session,
	})
	return svc, session, srv
}

func TestAuthService_GoogleFlow(t *testing.T) {
	svc, session, srv := newAuthFixture(t, &fakes.IdentityProvider{})
	srv.SetSession("google-access-code-1", `{"id":"42","given_name":"Ada"}`, "backend-token")

	pending, err := svc.BeginGoogle(context.Background(), "http://127.0.0.1:8765/callback")
	require.NoError(t, err)
	assert.Equal(t, "state-1", pending.State)

	sess, err := svc.CompleteGoogle(context.Background(), CompleteGoogleInput{
		Pending: pending,
		Code:    "code-1",
		State:   pending.State,
	})
	require.NoError(t, err)

	assert.Equal(t, "42", sess.UserID())
	assert.Equal(t, "backend-token", sess.Token)
	assert.Equal(t, sess, session.Snapshot())
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/auth"))
}

func TestAuthService_GoogleStateMismatch(t *testing.T) {
	svc, session, srv := newAuthFixture(t, &fakes.IdentityProvider{})

	pending, err := svc.BeginGoogle(context.Background(), "http://127.0.0.1:8765/callback")
	require.NoError(t, err)

	_, err = svc.CompleteGoogle(context.Background(), CompleteGoogleInput{Pending: pending, Code: "c", State: "forged"})
	require.Error(t, err)
	assert.False(t, session.Snapshot().IsAuthenticated())
	assert.Zero(t, srv.Count(http.MethodPost, "/auth"))
}

func TestAuthService_GoogleBackendRejects(t *testing.T) {
	svc, session, _ := newAuthFixture(t, &fakes.IdentityProvider{})
	pending, err := svc.BeginGoogle(context.Background(), "http://127.0.0.1:8765/callback")
	require.NoError(t, err)

	_, err = svc.CompleteGoogle(context.Background(), CompleteGoogleInput{Pending: pending, Code: "unknown", State: pending.State})

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.GetStatus(err))
	assert.False(t, session.Snapshot().IsAuthenticated())
}

func TestAuthService_GoogleDisabled(t *testing.T) {
	svc, _, _ := newAuthFixture(t, nil)

	_, err := svc.BeginGoogle(context.Background(), "http://127.0.0.1:8765/callback")
	require.ErrorIs(t, err, ErrGoogleDisabled)
	_, err = svc.CompleteGoogle(context.Background(), CompleteGoogleInput{Code: "c"})
	require.ErrorIs(t, err, ErrGoogleDisabled)
}

func TestAuthService_LoginApple(t *testing.T) {
	svc, session, srv := newAuthFixture(t, nil)
	srv.SetSession("apple-jwt", `{"id":7,"name":"Apple User"}`, "apple-backend-token")

	sess, err := svc.LoginApple(context.Background(), domainauth.AppleCredential{IdentityToken: "apple-jwt"})
	require.NoError(t, err)
	assert.Equal(t, "7", sess.UserID())
	assert.True(t, session.Snapshot().IsAuthenticated())

	_, err = svc.LoginApple(context.Background(), domainauth.AppleCredential{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthService_ExchangedSessionMustBeComplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	exchanger := mocks.NewMockCredentialExchanger(ctrl)
	exchanger.EXPECT().
		ExchangeApple(gomock.Any(), gomock.Any()).
		Return(domainauth.Session{User: &domainauth.User{ID: "7"}}, nil)

	session := NewSessionState(SessionStateOptions{Store: fakes.NewMemoryStore(nil), Sealer: testSealer(t)})
	svc := NewAuthService(AuthServiceOptions{Exchanger: exchanger, Session: session})

	_, err := svc.LoginApple(context.Background(), domainauth.AppleCredential{IdentityToken: "jwt"})
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, session.Snapshot().IsAuthenticated())
}

func TestRouteFor(t *testing.T) {
	assert.Equal(t, ports.RouteLogin, RouteFor(domainauth.Session{}))
	assert.Equal(t, ports.RouteScanner, RouteFor(signedIn().Snapshot()))
}
