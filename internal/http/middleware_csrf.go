package httpx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/observability/metrics"
	"github.com/target/auth-bff/internal/observability/statsd"
)

const (
	// DefaultCSRFCookieName is the default name for the CSRF cookie.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the default name for the CSRF header (canonical form).
	DefaultCSRFHeaderName = "X-Csrf-Token"

	msgInvalidCSRF = "Invalid CSRF token"
	resultSkipped  = "skipped"
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	// CookieName is the name of the CSRF cookie (default: "csrf_token")
	CookieName string
	// HeaderName is the name of the CSRF header to check (default: "X-Csrf-Token")
	HeaderName string
	// SkipIfBearer exempts requests carrying an Authorization: Bearer header.
	// Those come from non-browser clients that never send ambient cookies.
	SkipIfBearer bool

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// CSRFProtection returns a middleware that enforces the double-submit cookie pattern.
// On POST, PUT, PATCH and DELETE the CSRF cookie and header must both be present
// and identical; other methods pass through. The token is not compared with the
// one sealed in the session; login keeps the two in sync.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	// Set defaults
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresCSRFValidation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.SkipIfBearer {
				if _, ok := BearerToken(r); ok {
					metrics.EmitCSRF(cfg.Metrics, resultSkipped)
					next.ServeHTTP(w, r)
					return
				}
			}

			cookieToken := cookieValue(r, cfg.CookieName)
			headerToken := r.Header.Get(cfg.HeaderName)
			if !validateCSRFToken(cookieToken, headerToken) {
				metrics.EmitCSRF(cfg.Metrics, metrics.ResultRejected)
				cfg.Logger.WarnContext(r.Context(), "csrf validation failed",
					"method", r.Method,
					"path", r.URL.Path,
					"cookie_present", cookieToken != "",
					"header_present", headerToken != "",
				)
				WriteError(w, apperrors.Forbidden(msgInvalidCSRF))
				return
			}

			metrics.EmitCSRF(cfg.Metrics, metrics.ResultSuccess)
			next.ServeHTTP(w, r)
		})
	}
}

// requiresCSRFValidation returns true for the state-changing methods.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// validateCSRFToken reports whether both tokens are present and byte-equal.
// Uses constant-time comparison to prevent timing side-channel attacks.
func validateCSRFToken(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) == 1
}
