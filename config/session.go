package config

import (
	"fmt"
	"net/http"
	"strings"
)

// SameSite is the SameSite attribute applied to session and CSRF cookies.
type SameSite string

const (
	SameSiteLax    SameSite = "lax"
	SameSiteStrict SameSite = "strict"
	SameSiteNone   SameSite = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for SameSite.
func (s *SameSite) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "lax", "strict", "none":
		*s = SameSite(v)
		return nil
	default:
		return fmt.Errorf("invalid SameSite: %q (valid options: lax, strict, none)", v)
	}
}

// Mode maps the setting onto net/http's representation. Unknown values are Lax.
func (s SameSite) Mode() http.SameSite {
	switch s {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SessionConfig controls the encrypted session cookie and the CSRF guard.
// Variables are read with the SESSION_ prefix.
type SessionConfig struct {
	// Secret is a 64-character hex key or a passphrase the key is derived from.
	// Required unless AUTH_PROVIDER=mock, where a random key is generated.
	Secret string `env:"SECRET"`

	CookieName     string   `env:"COOKIE_NAME"      envDefault:"session"`
	CSRFCookieName string   `env:"CSRF_COOKIE_NAME" envDefault:"csrf_token"`
	CSRFHeader     string   `env:"CSRF_HEADER"      envDefault:"X-CSRF-Token"`
	SameSite       SameSite `env:"SAME_SITE"        envDefault:"lax"`
	Secure         bool     `env:"SECURE"           envDefault:"true"`
	Domain         string   `env:"COOKIE_DOMAIN"`
	Path           string   `env:"COOKIE_PATH"      envDefault:"/"`
	// MaxAge is the cookie lifetime in seconds.
	MaxAge int `env:"MAX_AGE" envDefault:"3600"`

	// CSRFSkipIfBearer exempts bearer-authenticated requests from the CSRF check.
	CSRFSkipIfBearer bool `env:"CSRF_SKIP_IF_BEARER" envDefault:"false"`

	// KeepUndecryptableCookie leaves cookies that fail to decrypt in place
	// instead of deleting them.
	KeepUndecryptableCookie bool `env:"KEEP_UNDECRYPTABLE_COOKIE" envDefault:"false"`
}

// Sanitize applies guardrails to session configuration values.
func (c *SessionConfig) Sanitize() {
	c.Secret = strings.TrimSpace(c.Secret)
	if c.CookieName = strings.TrimSpace(c.CookieName); c.CookieName == "" {
		c.CookieName = "session"
	}
	if c.CSRFCookieName = strings.TrimSpace(c.CSRFCookieName); c.CSRFCookieName == "" {
		c.CSRFCookieName = "csrf_token"
	}
	if c.CSRFHeader = strings.TrimSpace(c.CSRFHeader); c.CSRFHeader == "" {
		c.CSRFHeader = "X-CSRF-Token"
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}
	if c.SameSite == "" {
		c.SameSite = SameSiteLax
	}
	// Browsers reject SameSite=None without Secure.
	if c.SameSite == SameSiteNone {
		c.Secure = true
	}
}
