package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nutrinom/nutrinom-go/internal/data/cryptoutil"
	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/mocks"
	"github.com/nutrinom/nutrinom-go/internal/mocks/fakes"
)

func testSealer(t *testing.T) *cryptoutil.AESGCMSealer {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 7)
	}
	s, err := cryptoutil.NewAESGCMSealer(key)
	require.NoError(t, err)
	return s
}

func seededStore(t *testing.T, sealer *cryptoutil.AESGCMSealer, user domainauth.User, token string) *fakes.MemoryStore {
	t.Helper()
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	sealed, err := sealer.Seal([]byte(token), sessionTokenKey)
	require.NoError(t, err)
	return fakes.NewMemoryStore(map[string]string{
		sessionUserKey:  string(raw),
		sessionTokenKey: sealed,
	})
}

func TestSessionState_HydrateRestoresSession(t *testing.T) {
	sealer := testSealer(t)
	store := seededStore(t, sealer, domainauth.User{ID: "7", GivenName: "Grace"}, "tok-7")
	s := NewSessionState(SessionStateOptions{Store: store, Sealer: sealer})

	sess := s.Hydrate(context.Background())

	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "7", sess.UserID())
	assert.Equal(t, "tok-7", sess.Token)
	assert.False(t, s.Loading())
	assert.Equal(t, sess, s.Snapshot())
}

func TestSessionState_HydrateWithPartialStorageIsSignedOut(t *testing.T) {
	store := fakes.NewMemoryStore(map[string]string{sessionUserKey: `{"id":"7"}`})
	s := NewSessionState(SessionStateOptions{Store: store, Sealer: testSealer(t)})

	sess := s.Hydrate(context.Background())
	assert.False(t, sess.IsAuthenticated())
}

func TestSessionState_HydrateFailureClearsStorage(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) *fakes.MemoryStore
	}{
		{
			name: "corrupt user",
			store: func(t *testing.T) *fakes.MemoryStore {
				return fakes.NewMemoryStore(map[string]string{sessionUserKey: "{not json", sessionTokenKey: "v1:abc"})
			},
		},
		{
			name: "token sealed with another key",
			store: func(t *testing.T) *fakes.MemoryStore {
				other, err := cryptoutil.NewAESGCMSealer(make([]byte, 32))
				require.NoError(t, err)
				return seededStore(t, other, domainauth.User{ID: "7"}, "tok")
			},
		},
		{
			name: "user without id",
			store: func(t *testing.T) *fakes.MemoryStore {
				return seededStore(t, testSealer(t), domainauth.User{Name: "nobody"}, "tok")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store(t)
			reporter := &fakes.Reporter{}
			s := NewSessionState(SessionStateOptions{
				Store:  store,
				Sealer: testSealer(t),
				Deps:   SessionStateDeps{Reporter: reporter},
			})

			sess := s.Hydrate(context.Background())

			assert.False(t, sess.IsAuthenticated())
			assert.Empty(t, store.Keys())
			require.Len(t, reporter.Errors(), 1)
			assert.Equal(t, "hydrate_session", reporter.Errors()[0].Tags["operation"])
		})
	}
}

func TestSessionState_HydrateReadErrorSignsOut(t *testing.T) {
	store := fakes.NewMemoryStore(nil)
	store.GetErr = errors.New("disk unavailable")
	s := NewSessionState(SessionStateOptions{Store: store, Sealer: testSealer(t)})

	sess := s.Hydrate(context.Background())
	assert.False(t, sess.IsAuthenticated())
	assert.False(t, s.Loading())
}

func TestSessionState_LoginPersistsSealedToken(t *testing.T) {
	sealer := testSealer(t)
	store := fakes.NewMemoryStore(nil)
	s := NewSessionState(SessionStateOptions{Store: store, Sealer: sealer})

	require.NoError(t, s.Login(context.Background(), &domainauth.User{ID: "42", GivenName: "Ada"}, "backend-token"))

	sealed, ok := store.Value(sessionTokenKey)
	require.True(t, ok)
	assert.NotContains(t, sealed, "backend-token")
	pt, err := sealer.Open(sealed, sessionTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "backend-token", string(pt))

	// A fresh store instance sees the same session.
	restored := NewSessionState(SessionStateOptions{Store: store, Sealer: sealer}).Hydrate(context.Background())
	assert.Equal(t, s.Snapshot(), restored)
}

func TestSessionState_LoginValidation(t *testing.T) {
	s := NewSessionState(SessionStateOptions{Store: fakes.NewMemoryStore(nil), Sealer: testSealer(t)})

	err := s.Login(context.Background(), nil, "tok")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "user", apperrors.GetField(err))

	err = s.Login(context.Background(), &domainauth.User{ID: "1"}, "")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "token", apperrors.GetField(err))

	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestSessionState_LoginSurvivesPersistFailure(t *testing.T) {
	store := fakes.NewMemoryStore(nil)
	store.SetErr = errors.New("quota exceeded")
	reporter := &fakes.Reporter{}
	s := NewSessionState(SessionStateOptions{
		Store:  store,
		Sealer: testSealer(t),
		Deps:   SessionStateDeps{Reporter: reporter},
	})

	require.NoError(t, s.Login(context.Background(), &domainauth.User{ID: "42"}, "tok"))

	assert.True(t, s.Snapshot().IsAuthenticated())
	require.Len(t, reporter.Errors(), 1)
	assert.Equal(t, "persist_session", reporter.Errors()[0].Tags["operation"])
}

func TestSessionState_SnapshotIsACopy(t *testing.T) {
	s := NewSessionState(SessionStateOptions{Store: fakes.NewMemoryStore(nil), Sealer: testSealer(t)})
	require.NoError(t, s.Login(context.Background(), &domainauth.User{ID: "42", GivenName: "Ada"}, "tok"))

	snap := s.Snapshot()
	snap.User.GivenName = "Mallory"

	assert.Equal(t, "Ada", s.Snapshot().User.GivenName)
}

func TestSessionState_LogoutIsIdempotent(t *testing.T) {
	store := fakes.NewMemoryStore(nil)
	reporter := &fakes.Reporter{}
	s := NewSessionState(SessionStateOptions{
		Store:  store,
		Sealer: testSealer(t),
		Deps:   SessionStateDeps{Reporter: reporter},
	})
	require.NoError(t, s.Login(context.Background(), &domainauth.User{ID: "42"}, "tok"))

	var seen []bool
	unsub := s.Subscribe(func(sess domainauth.Session) { seen = append(seen, sess.IsAuthenticated()) })
	defer unsub()

	s.Logout(context.Background())
	s.Logout(context.Background())

	assert.False(t, s.Snapshot().IsAuthenticated())
	assert.Empty(t, store.Keys())
	assert.Equal(t, []bool{false, false}, seen)
	assert.Len(t, reporter.Breadcrumbs(), 1, "only a real sign-out leaves a breadcrumb")
}

func TestSessionState_DeleteAccount(t *testing.T) {
	t.Run("success signs out", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		account := mocks.NewMockAccountService(ctrl)
		account.EXPECT().DeleteAccount(gomock.Any(), "tok").Return(nil)

		store := fakes.NewMemoryStore(nil)
		reporter := &fakes.Reporter{}
		s := NewSessionState(SessionStateOptions{
			Store:   store,
			Account: account,
			Sealer:  testSealer(t),
			Deps:    SessionStateDeps{Reporter: reporter},
		})
		require.NoError(t, s.Login(context.Background(), &domainauth.User{ID: "42"}, "tok"))

		require.NoError(t, s.DeleteAccount(context.Background()))

		assert.False(t, s.Snapshot().IsAuthenticated())
		assert.Empty(t, store.Keys())
		var messages []string
		for _, c := range reporter.Breadcrumbs() {
			messages = append(messages, c.Message)
		}
		assert.Equal(t, []string{"Delete account requested", "Account deleted", "User logged out"}, messages)
	})

	t.Run("failure keeps the session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		account := mocks.NewMockAccountService(ctrl)
		account.EXPECT().DeleteAccount(gomock.Any(), "tok").Return(apperrors.Server(503, "Service unavailable"))

		reporter := &fakes.Reporter{}
		s := NewSessionState(SessionStateOptions{
			Store:   fakes.NewMemoryStore(nil),
			Account: account,
			Sealer:  testSealer(t),
			Deps:    SessionStateDeps{Reporter: reporter},
		})
		require.NoError(t, s.Login(context.Background(), &domainauth.User{ID: "42"}, "tok"))

		err := s.DeleteAccount(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsServer(err))
		assert.True(t, s.Snapshot().IsAuthenticated())
		require.Len(t, reporter.Errors(), 1)
		assert.Equal(t, "503", reporter.Errors()[0].Tags["status_code"])
	})

	t.Run("signed out", func(t *testing.T) {
		s := NewSessionState(SessionStateOptions{Store: fakes.NewMemoryStore(nil), Sealer: testSealer(t)})
		assert.True(t, apperrors.IsAuthRequired(s.DeleteAccount(context.Background())))
	})
}

func TestNewSessionState_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewSessionState(SessionStateOptions{Sealer: cryptoutil.PlainSealer{}}) })
	assert.Panics(t, func() { NewSessionState(SessionStateOptions{Store: fakes.NewMemoryStore(nil)}) })
}
