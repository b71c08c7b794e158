package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// UserID is the backend's identifier for a user. The backend has returned
// both string and numeric ids over time, so both decode to the same form.
type UserID string

// UnmarshalJSON accepts a JSON string or number.
func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string { return string(id) }

// User is the identity record returned by the backend on sign-in.
type User struct {
	ID              UserID `json:"id"`
	Name            string `json:"name,omitempty"`
	GivenName       string `json:"given_name,omitempty"`
	ProfileImageURL string `json:"profile_img,omitempty"`
	Email           string `json:"email,omitempty"`
}

// DisplayName prefers the given name and falls back to the full name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if g := strings.TrimSpace(u.GivenName); g != "" {
		return g
	}
	return strings.TrimSpace(u.Name)
}

// Session pairs a user with the bearer token issued by the backend.
// The zero value is a signed-out session.
type Session struct {
	User  *User
	Token string
}

// IsAuthenticated is true iff both user and token are present.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.User.ID != "" && s.Token != ""
}

// UserID returns the session's user id or "" when signed out.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return string(s.User.ID)
}

// LogValue keeps the token out of structured logs.
func (s Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", s.UserID()),
		slog.Bool("authenticated", s.IsAuthenticated()),
		slog.String("token", RedactToken(s.Token)),
	)
}

// String implements fmt.Stringer without exposing the token.
func (s Session) String() string {
	return fmt.Sprintf("Session{user_id=%q token=%s}", s.UserID(), RedactToken(s.Token))
}

// RedactToken returns a placeholder that reveals only the token length class.
func RedactToken(token string) string {
	if token == "" {
		return "<none>"
	}
	return "<redacted:" + strconv.Itoa(len(token)) + ">"
}

// AppleCredential is the identity payload produced by Sign in with Apple.
type AppleCredential struct {
	IdentityToken string `json:"identityToken"`
	FullName      string `json:"fullName,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject     string // stable provider subject (sub claim)
	Name        string
	GivenName   string
	Email       string
	Picture     string
	AccessToken string // provider access token exchanged with the backend
	ExpiresAt   time.Time
}
