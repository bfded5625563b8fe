// Package auth contains domain-level types for gateway sessions and verified identities.
// It is pure and free of framework/adapter concerns.
package auth

// Claims is the decoded payload of a verified token or the opaque user object
// returned by an IdP. Values follow encoding/json decoding rules.
type Claims map[string]any

// AuthMethod records which credential source produced a verified identity.
type AuthMethod string

const (
	AuthMethodBearer AuthMethod = "bearer"
	AuthMethodCookie AuthMethod = "cookie"
)

// TokenResponse is the result of a successful IdP credential exchange.
// It is folded into SessionData by the login flow and then discarded.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         Claims `json:"user"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// SessionData is the plaintext session record. It only ever exists in memory
// during a request; the browser holds the encrypted form.
//
// CSRFToken is minted once at login and must match the readable CSRF cookie
// issued alongside the session cookie.
type SessionData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	CSRFToken    string `json:"csrf_token"`
	User         Claims `json:"user"`
	IssuedAt     int64  `json:"iat,omitempty"`
}

// Identity is a verified caller for the remainder of one request.
type Identity struct {
	Claims Claims
	Method AuthMethod
}

// Subject returns the "sub" claim, or empty string when absent.
func (i Identity) Subject() string {
	if s, ok := i.Claims["sub"].(string); ok {
		return s
	}
	return ""
}
