package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	"github.com/target/auth-bff/internal/ports"
)

var (
	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrVerifierMisconfigured is returned when the JWKS URL or issuer is missing.
	ErrVerifierMisconfigured = errors.New("token verification is not configured")
)

// signingMethods lists the asymmetric algorithms accepted from identity providers.
var signingMethods = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// TokenVerifierOptions groups dependencies for TokenVerifier.
type TokenVerifierOptions struct {
	Keys   ports.KeySource
	Leeway time.Duration
	Logger *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// TokenVerifier checks signature, issuer and expiry of provider access tokens.
type TokenVerifier struct {
	keys   ports.KeySource
	leeway time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenVerifier constructs a TokenVerifier.
func NewTokenVerifier(opts TokenVerifierOptions) *TokenVerifier {
	v := &TokenVerifier{
		keys:   opts.Keys,
		leeway: opts.Leeway,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// Verify returns the claims of token when it is signed by a key published at
// jwksURL, carries exactly issuer as "iss", and has not expired.
// Every verification failure wraps ErrInvalidToken.
func (v *TokenVerifier) Verify(ctx context.Context, token, jwksURL, issuer string) (domainauth.Claims, error) {
	if strings.TrimSpace(jwksURL) == "" || strings.TrimSpace(issuer) == "" {
		return nil, ErrVerifierMisconfigured
	}
	if v.keys == nil {
		return nil, ErrVerifierMisconfigured
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)

	keys, err := v.keys.VerificationKeys(ctx, jwksURL, kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(signingMethods),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)

	var lastErr error
	for _, key := range keys {
		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err == nil {
			return domainauth.Claims(claims), nil
		}
		lastErr = err
		// Claim failures do not depend on the key; stop early.
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) && !errors.Is(err, jwt.ErrTokenUnverifiable) {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no verification keys")
	}
	return nil, fmt.Errorf("%w: %w", ErrInvalidToken, lastErr)
}
