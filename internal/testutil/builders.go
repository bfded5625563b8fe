package testutil

import (
	"time"

	"github.com/target/auth-bff/internal/domain/auth"
)

// SessionBuilder provides a fluent interface for building SessionData values for testing.
type SessionBuilder struct {
	s auth.SessionData
}

// NewSession creates a SessionBuilder with sensible defaults.
func NewSession() *SessionBuilder {
	return &SessionBuilder{
		s: auth.SessionData{
			AccessToken: "access-token",
			CSRFToken:   "csrf-token",
			User:        auth.Claims{"email": "user@example.com", "sub": "user-1"},
			IssuedAt:    TestTime().Unix(),
		},
	}
}

// WithAccessToken sets the access token.
func (b *SessionBuilder) WithAccessToken(token string) *SessionBuilder {
	b.s.AccessToken = token
	return b
}

// WithRefreshToken sets the refresh token.
func (b *SessionBuilder) WithRefreshToken(token string) *SessionBuilder {
	b.s.RefreshToken = token
	return b
}

// WithCSRFToken sets the CSRF token.
func (b *SessionBuilder) WithCSRFToken(token string) *SessionBuilder {
	b.s.CSRFToken = token
	return b
}

// WithUser sets the user object.
func (b *SessionBuilder) WithUser(user auth.Claims) *SessionBuilder {
	b.s.User = user
	return b
}

// IssuedAt sets the issue time.
func (b *SessionBuilder) IssuedAt(t time.Time) *SessionBuilder {
	b.s.IssuedAt = t.Unix()
	return b
}

// Build returns the built session.
func (b *SessionBuilder) Build() auth.SessionData {
	return b.s
}
