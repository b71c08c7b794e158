package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// Keys under which the session is persisted in the device store.
const (
	sessionUserKey  = "user"
	sessionTokenKey = "token"
)

// SessionReader exposes the current session to components that only need
// to read it.
type SessionReader interface {
	Snapshot() domainauth.Session
}

// SessionStateOptions groups dependencies for SessionState.
type SessionStateOptions struct {
	Store   ports.KeyValueStore  // Required: device key-value store
	Account ports.AccountService // Required for DeleteAccount
	Sealer  ports.Sealer         // Required: token protection at rest
	Deps    SessionStateDeps     // Optional collaborators
}

// SessionStateDeps holds the optional collaborators of SessionState.
type SessionStateDeps struct {
	Reporter ports.Reporter
	Logger   *slog.Logger
}

// SessionState is the single authenticated-session store. Mutations replace
// the whole session so readers never observe a user without its token.
type SessionState struct {
	store    ports.KeyValueStore
	account  ports.AccountService
	sealer   ports.Sealer
	reporter ports.Reporter
	logger   *slog.Logger

	mu         sync.RWMutex
	session    domainauth.Session
	loading    bool
	generation uint64

	subs observers[domainauth.Session]
}

var _ SessionReader = (*SessionState)(nil)

// NewSessionState constructs a signed-out SessionState. Call Hydrate to
// restore a persisted session.
func NewSessionState(opts SessionStateOptions) *SessionState {
	if opts.Store == nil {
		panic("service: SessionState requires a Store")
	}
	if opts.Sealer == nil {
		panic("service: SessionState requires a Sealer")
	}
	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionState{
		store:    opts.Store,
		account:  opts.Account,
		sealer:   opts.Sealer,
		reporter: reporterOrNop(opts.Deps.Reporter),
		logger:   logger.With("component", "session"),
	}
}

// Snapshot returns a copy of the current session.
func (s *SessionState) Snapshot() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.session)
}

// Loading is true while Hydrate runs.
func (s *SessionState) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Subscribe registers fn for every session change and returns a func that
// unregisters it.
func (s *SessionState) Subscribe(fn func(domainauth.Session)) func() {
	return s.subs.add(fn)
}

// Hydrate restores the persisted session. Any storage, decoding or unsealing
// failure leaves the client signed out, clears the store and is reported;
// Hydrate itself never fails.
func (s *SessionState) Hydrate(ctx context.Context) domainauth.Session {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	sess, err := s.load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to restore session, signing out", "error", err)
		s.reporter.CaptureError(ctx, err, map[string]string{"operation": "hydrate_session"})
		if cerr := s.store.Delete(ctx, sessionUserKey, sessionTokenKey); cerr != nil {
			s.logger.ErrorContext(ctx, "failed to clear session storage", "error", cerr)
		}
		sess = domainauth.Session{}
	}

	s.apply(sess)
	if sess.IsAuthenticated() {
		s.logger.InfoContext(ctx, "session restored", "session", sess)
	}
	return copySession(sess)
}

func (s *SessionState) load(ctx context.Context) (domainauth.Session, error) {
	rawUser, hasUser, err := s.store.Get(ctx, sessionUserKey)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("read stored user: %w", err)
	}
	sealed, hasToken, err := s.store.Get(ctx, sessionTokenKey)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("read stored token: %w", err)
	}
	if !hasUser || !hasToken {
		return domainauth.Session{}, nil
	}

	var user domainauth.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode stored user: %w", err)
	}
	token, err := s.sealer.Open(sealed, sessionTokenKey)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("open stored token: %w", err)
	}

	sess := domainauth.Session{User: &user, Token: string(token)}
	if !sess.IsAuthenticated() {
		return domainauth.Session{}, apperrors.Internal("stored session is incomplete")
	}
	return sess, nil
}

// Login applies a new session in memory and then persists it. A persistence
// failure is reported but does not undo the in-memory sign-in.
func (s *SessionState) Login(ctx context.Context, user *domainauth.User, token string) error {
	if user == nil || user.ID == "" {
		return apperrors.ValidationField("user", "user id is required")
	}
	if token == "" {
		return apperrors.ValidationField("token", "token is required")
	}

	u := *user
	sess := domainauth.Session{User: &u, Token: token}
	s.apply(sess)
	s.logger.InfoContext(ctx, "signed in", "session", sess)

	if err := s.persist(ctx, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session", "user_id", sess.UserID(), "error", err)
		s.reporter.CaptureError(ctx, err, map[string]string{
			"operation": "persist_session",
			"user_id":   sess.UserID(),
		})
	}
	return nil
}

func (s *SessionState) persist(ctx context.Context, sess domainauth.Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	sealed, err := s.sealer.Seal([]byte(sess.Token), sessionTokenKey)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	if err := s.store.Set(ctx, sessionUserKey, string(rawUser)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	if err := s.store.Set(ctx, sessionTokenKey, sealed); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Logout clears the session from memory and then from storage. It is safe
// to call when already signed out.
func (s *SessionState) Logout(ctx context.Context) {
	prev := s.Snapshot()
	s.apply(domainauth.Session{})

	if err := s.store.Delete(ctx, sessionUserKey, sessionTokenKey); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear session storage", "error", err)
		s.reporter.CaptureError(ctx, err, map[string]string{
			"operation": "logout",
			"user_id":   prev.UserID(),
		})
	}
	if prev.IsAuthenticated() {
		s.reporter.Breadcrumb(ctx, "auth", "User logged out", map[string]string{"user_id": prev.UserID()})
		s.logger.InfoContext(ctx, "signed out", "user_id", prev.UserID())
	}
}

// DeleteAccount removes the remote account and then signs out. On failure
// the session is left intact and the error is returned.
func (s *SessionState) DeleteAccount(ctx context.Context) error {
	sess := s.Snapshot()
	if !sess.IsAuthenticated() {
		return apperrors.AuthRequired("sign in to delete your account")
	}
	if s.account == nil {
		return apperrors.Internal("account service is not configured")
	}

	s.reporter.Breadcrumb(ctx, "auth", "Delete account requested", map[string]string{"user_id": sess.UserID()})
	if err := s.account.DeleteAccount(ctx, sess.Token); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete account", "user_id", sess.UserID(), "error", err)
		s.reporter.CaptureError(ctx, err, map[string]string{
			"operation":   "delete_account",
			"user_id":     sess.UserID(),
			"status_code": statusTag(err),
		})
		return fmt.Errorf("delete account: %w", err)
	}

	s.reporter.Breadcrumb(ctx, "auth", "Account deleted", map[string]string{"user_id": sess.UserID()})
	s.Logout(ctx)
	return nil
}

func (s *SessionState) apply(sess domainauth.Session) {
	s.mu.Lock()
	s.session = copySession(sess)
	s.generation++
	gen := s.generation
	snap := copySession(s.session)
	s.mu.Unlock()

	s.subs.notify(snap, gen)
}

func copySession(sess domainauth.Session) domainauth.Session {
	if sess.User == nil {
		return domainauth.Session{Token: sess.Token}
	}
	u := *sess.User
	return domainauth.Session{User: &u, Token: sess.Token}
}
