package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/observability/metrics"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/session"
)

// ErrNoCredential means the request carried neither a bearer token nor a usable session.
var ErrNoCredential = errors.New("no credential")

const (
	msgNoCredential     = "Unauthorized: No token or session found"
	msgInvalidToken     = "Unauthorized: Invalid or expired token"
	msgNoJWKSURL        = "Server error: JWKS URL not configured"
	msgNoIssuer         = "Server error: issuer not configured"
	msgNoIdP            = "Server error: identity provider not configured"
	msgNoSessionKey     = "Server error: session key not configured"
	msgNoTokenVerifier  = "Server error: token verifier not configured"
	bearerPrefix        = "bearer "
	authorizationHeader = "Authorization"
)

// TokenVerifier checks a provider access token against a key set and issuer.
type TokenVerifier interface {
	Verify(ctx context.Context, token, jwksURL, issuer string) (domainauth.Claims, error)
}

// AuthConfig configures the Authenticate middleware.
type AuthConfig struct {
	IdP        Resolver[ports.IdPAdapter]
	SessionKey Resolver[session.Key]
	Verifier   TokenVerifier
	Cookies    Cookies

	// JWKSURL and Issuer override the provider's own values when set.
	JWKSURL Resolver[string]
	Issuer  Resolver[string]

	// KeepUndecryptableCookie disables deleting a session cookie that fails to decrypt.
	KeepUndecryptableCookie bool

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// Authenticate resolves the caller's credential, verifies it and attaches the
// resulting identity to the request context.
//
// A bearer header always wins over the session cookie. A session cookie that
// cannot be decrypted is deleted and treated as absent. Verification failures
// answer 401 with a generic message; the cause is only logged.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := cfg.resolve(w, r)
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), id)))
		})
	}
}

func (cfg AuthConfig) resolve(w http.ResponseWriter, r *http.Request) (domainauth.Identity, error) {
	ctx := r.Context()

	token, method, err := cfg.candidate(w, r)
	if err != nil {
		metrics.EmitResolve(cfg.Metrics, "", metrics.ResultError, err)
		cfg.Logger.ErrorContext(ctx, "auth misconfigured", "error", err)
		return domainauth.Identity{}, err
	}
	if token == "" {
		metrics.EmitResolve(cfg.Metrics, "", metrics.ResultAbsent, nil)
		return domainauth.Identity{}, apperrors.Wrap(ErrNoCredential, apperrors.ErrCodeUnauthorized, msgNoCredential)
	}

	jwksURL, issuer, err := cfg.verificationTarget(r)
	if err != nil {
		metrics.EmitResolve(cfg.Metrics, string(method), metrics.ResultError, err)
		cfg.Logger.ErrorContext(ctx, "auth misconfigured", "error", err)
		return domainauth.Identity{}, err
	}

	claims, err := cfg.Verifier.Verify(ctx, token, jwksURL, issuer)
	if err != nil {
		metrics.EmitResolve(cfg.Metrics, string(method), metrics.ResultRejected, err)
		cfg.Logger.WarnContext(ctx, "jwt verification failed",
			"method", r.Method,
			"path", r.URL.Path,
			"auth_method", string(method),
			"error", err,
		)
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, msgInvalidToken)
	}

	metrics.EmitResolve(cfg.Metrics, string(method), metrics.ResultSuccess, nil)
	return domainauth.Identity{Claims: claims, Method: method}, nil
}

// candidate returns the token to verify and where it came from, or an empty
// token when the request carries no usable credential.
func (cfg AuthConfig) candidate(w http.ResponseWriter, r *http.Request) (string, domainauth.AuthMethod, error) {
	if token, ok := BearerToken(r); ok {
		return token, domainauth.AuthMethodBearer, nil
	}

	raw := cfg.Cookies.Session(r)
	if raw == "" {
		return "", "", nil
	}
	if cfg.SessionKey == nil {
		return "", "", apperrors.Misconfigured(msgNoSessionKey)
	}
	key, err := cfg.SessionKey.Resolve(r)
	if err != nil {
		return "", "", apperrors.Wrap(err, apperrors.ErrCodeMisconfigured, msgNoSessionKey)
	}
	if !key.Valid() {
		return "", "", apperrors.Misconfigured(msgNoSessionKey)
	}

	sess, err := session.Open(raw, key)
	if err != nil {
		cfg.Logger.WarnContext(r.Context(), "failed to decrypt session cookie",
			"path", r.URL.Path,
			"error", err,
		)
		if !cfg.KeepUndecryptableCookie {
			cfg.Cookies.ClearSession(w)
		}
		return "", "", nil
	}
	if sess.AccessToken == "" {
		return "", "", nil
	}
	return sess.AccessToken, domainauth.AuthMethodCookie, nil
}

func (cfg AuthConfig) verificationTarget(r *http.Request) (jwksURL, issuer string, err error) {
	if cfg.Verifier == nil {
		return "", "", apperrors.Misconfigured(msgNoTokenVerifier)
	}

	var idp ports.IdPAdapter
	if cfg.JWKSURL == nil || cfg.Issuer == nil {
		if cfg.IdP == nil {
			return "", "", apperrors.Misconfigured(msgNoIdP)
		}
		if idp, err = cfg.IdP.Resolve(r); err != nil {
			return "", "", apperrors.Wrap(err, apperrors.ErrCodeMisconfigured, msgNoIdP)
		}
		if idp == nil {
			return "", "", apperrors.Misconfigured(msgNoIdP)
		}
	}

	if cfg.JWKSURL != nil {
		if jwksURL, err = cfg.JWKSURL.Resolve(r); err != nil {
			return "", "", apperrors.Wrap(err, apperrors.ErrCodeMisconfigured, msgNoJWKSURL)
		}
	} else {
		jwksURL = idp.JWKSURL()
	}
	if cfg.Issuer != nil {
		if issuer, err = cfg.Issuer.Resolve(r); err != nil {
			return "", "", apperrors.Wrap(err, apperrors.ErrCodeMisconfigured, msgNoIssuer)
		}
	} else {
		issuer = idp.Issuer()
	}

	if strings.TrimSpace(jwksURL) == "" {
		return "", "", apperrors.Misconfigured(msgNoJWKSURL)
	}
	if strings.TrimSpace(issuer) == "" {
		return "", "", apperrors.Misconfigured(msgNoIssuer)
	}
	return jwksURL, issuer, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(authorizationHeader)
	if len(h) <= len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(bearerPrefix):])
	return token, token != ""
}
