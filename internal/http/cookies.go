package httpx

import (
	"net/http"
	"time"
)

const (
	// DefaultSessionCookieName is the default name of the encrypted session cookie.
	DefaultSessionCookieName = "session"
	// DefaultCookieMaxAge is the session lifetime in seconds when nothing else caps it.
	DefaultCookieMaxAge = 3600
)

// CookieOptions controls the attributes of every session and CSRF cookie.
// Writes and deletes use the same options so browsers match them up.
type CookieOptions struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	Path     string
	// MaxAge is in seconds.
	MaxAge int
	Domain string
}

// DefaultCookieOptions returns httpOnly, Secure, SameSite=Lax cookies scoped to "/"
// for one hour.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		HTTPOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   DefaultCookieMaxAge,
	}
}

// Cookies names the session and CSRF cookies and writes them with shared options.
type Cookies struct {
	SessionName string
	CSRFName    string
	Options     CookieOptions
}

// DefaultCookies returns the default cookie names and options.
func DefaultCookies() Cookies {
	return Cookies{
		SessionName: DefaultSessionCookieName,
		CSRFName:    DefaultCSRFCookieName,
		Options:     DefaultCookieOptions(),
	}
}

func (c Cookies) withDefaults() Cookies {
	if c.SessionName == "" {
		c.SessionName = DefaultSessionCookieName
	}
	if c.CSRFName == "" {
		c.CSRFName = DefaultCSRFCookieName
	}
	if c.Options.Path == "" {
		c.Options.Path = "/"
	}
	if c.Options.MaxAge <= 0 {
		c.Options.MaxAge = DefaultCookieMaxAge
	}
	if c.Options.SameSite == 0 {
		c.Options.SameSite = http.SameSiteLaxMode
	}
	return c
}

// SetLogin writes the encrypted session cookie and the readable CSRF cookie.
// A positive expiresIn shortens Max-Age to the token lifetime.
func (c Cookies) SetLogin(w http.ResponseWriter, sessionValue, csrfToken string, expiresIn int64) {
	c = c.withDefaults()
	maxAge := c.Options.MaxAge
	if expiresIn > 0 && expiresIn < int64(maxAge) {
		maxAge = int(expiresIn)
	}
	http.SetCookie(w, c.cookie(c.SessionName, sessionValue, c.Options.HTTPOnly, maxAge))
	// The CSRF cookie is read by browser code and echoed in a header.
	http.SetCookie(w, c.cookie(c.CSRFName, csrfToken, false, maxAge))
}

// ClearSession deletes the session cookie.
func (c Cookies) ClearSession(w http.ResponseWriter) {
	c = c.withDefaults()
	http.SetCookie(w, c.expired(c.SessionName, c.Options.HTTPOnly))
}

// ClearAll deletes the session and CSRF cookies.
func (c Cookies) ClearAll(w http.ResponseWriter) {
	c = c.withDefaults()
	http.SetCookie(w, c.expired(c.SessionName, c.Options.HTTPOnly))
	http.SetCookie(w, c.expired(c.CSRFName, false))
}

// Session returns the session cookie value, or "" when absent.
func (c Cookies) Session(r *http.Request) string {
	return cookieValue(r, c.withDefaults().SessionName)
}

// CSRF returns the CSRF cookie value, or "" when absent.
func (c Cookies) CSRF(r *http.Request) string {
	return cookieValue(r, c.withDefaults().CSRFName)
}

func (c Cookies) cookie(name, value string, httpOnly bool, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Options.Path,
		Domain:   c.Options.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   c.Options.Secure,
		SameSite: c.Options.SameSite,
	}
}

func (c Cookies) expired(name string, httpOnly bool) *http.Cookie {
	ck := c.cookie(name, "", httpOnly, -1)
	ck.Expires = time.Unix(0, 0).UTC()
	return ck
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
