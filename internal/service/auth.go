package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/observability/metrics"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/session"
)

const defaultLoginFailure = "Login failed"

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	// Limiter is optional; nil disables login throttling.
	Limiter ports.LoginLimiter
	Metrics statsd.Sink
	Logger  *slog.Logger
	Now     func() time.Time
	// NewCSRFToken is overridable for tests.
	NewCSRFToken func() string
}

// AuthService orchestrates login, logout and session introspection over an
// identity provider and the session codec. It holds no per-user state.
type AuthService struct {
	limiter ports.LoginLimiter
	metrics statsd.Sink
	logger  *slog.Logger
	now     func() time.Time
	newCSRF func() string
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	s := &AuthService{
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Now,
		newCSRF: opts.NewCSRFToken,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCSRF == nil {
		s.newCSRF = generateCSRFToken
	}
	return s
}

// LoginInput groups parameters for a credential login.
type LoginInput struct {
	IdP      ports.IdPAdapter
	Key      session.Key
	Email    string
	Password string
}

// LoginResult carries everything the transport needs to set both cookies.
type LoginResult struct {
	User domainauth.Claims
	// SessionCookie is the encrypted session.
	SessionCookie string
	// CSRFToken is embedded in the session and issued as the readable cookie.
	CSRFToken string
	// ExpiresIn is the provider's token lifetime in seconds, zero when unknown.
	ExpiresIn int64
}

// Login exchanges credentials with the provider and seals a new session.
// Provider failures are Upstream errors carrying the provider's message.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := s.now()
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}
	if in.IdP == nil {
		return nil, apperrors.Misconfigured("identity provider is not configured")
	}
	if !in.Key.Valid() {
		return nil, apperrors.Misconfigured("session key is not configured")
	}
	provider := in.IdP.Name()
	limitKey := strings.ToLower(email)

	if err := s.checkLimiter(ctx, limitKey); err != nil {
		metrics.EmitLogin(s.metrics, metrics.LoginMetric{Provider: provider, Result: metrics.ResultLimited, Err: err})
		return nil, err
	}

	tokens, err := in.IdP.Login(ctx, email, in.Password)
	if err != nil {
		s.recordFailure(ctx, limitKey)
		appErr := apperrors.Wrap(err, apperrors.ErrCodeUpstream, upstreamMessage(err))
		metrics.EmitLogin(s.metrics, metrics.LoginMetric{
			Provider: provider,
			Result:   metrics.ResultError,
			Duration: s.now().Sub(start),
			Err:      appErr,
		})
		return nil, appErr
	}
	if tokens.AccessToken == "" {
		return nil, apperrors.Upstream("identity provider returned no access token")
	}

	csrfToken := s.newCSRF()
	sess := domainauth.SessionData{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		CSRFToken:    csrfToken,
		User:         tokens.User,
		IssuedAt:     s.now().Unix(),
	}
	sealed, err := session.Encrypt(sess, in.Key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "could not create session")
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, limitKey); err != nil {
			s.logger.WarnContext(ctx, "login limiter reset failed", "error", err)
		}
	}
	metrics.EmitLogin(s.metrics, metrics.LoginMetric{
		Provider: provider,
		Result:   metrics.ResultSuccess,
		Duration: s.now().Sub(start),
	})

	return &LoginResult{
		User:          tokens.User,
		SessionCookie: sealed,
		CSRFToken:     csrfToken,
		ExpiresIn:     tokens.ExpiresIn,
	}, nil
}

// Logout revokes the session's access token at the provider when the cookie
// holds a usable session. Provider failures are logged and swallowed, so
// local teardown always proceeds.
func (s *AuthService) Logout(ctx context.Context, idp ports.IdPAdapter, key session.Key, cookie string) {
	if cookie == "" || idp == nil {
		return
	}
	sess, ok := session.Decrypt(cookie, key)
	if !ok || sess.AccessToken == "" {
		return
	}
	if err := idp.Logout(ctx, sess.AccessToken); err != nil {
		s.logger.WarnContext(ctx, "logout from identity provider failed",
			"provider", idp.Name(),
			"error", err,
		)
	}
}

// Session returns the user stored in cookie. ok is false when the cookie is
// absent or cannot be decrypted; the two cases are deliberately identical.
func (s *AuthService) Session(ctx context.Context, key session.Key, cookie string) (user domainauth.Claims, ok bool) {
	if cookie == "" {
		return nil, false
	}
	sess, err := session.Open(cookie, key)
	if err != nil {
		s.logger.DebugContext(ctx, "session cookie rejected", "error", err)
		return nil, false
	}
	return sess.User, true
}

func (s *AuthService) checkLimiter(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// Throttling is advisory; a limiter outage must not lock everyone out.
		s.logger.WarnContext(ctx, "login limiter unavailable", "error", err)
		return nil
	}
	if !allowed {
		return apperrors.RateLimited("too many login attempts, try again later")
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Failure(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "login limiter record failed", "error", err)
	}
}

// upstreamMessage prefers the provider's own message when one is available.
func upstreamMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return defaultLoginFailure
}

// generateCSRFToken creates a random CSRF token.
func generateCSRFToken() string {
	return uuid.NewString()
}
