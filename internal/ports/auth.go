package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
)

// IdPAdapter is the contract every upstream identity provider satisfies.
// Adapters are interchangeable; the gateway never branches on the concrete type.
type IdPAdapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Login exchanges email/password credentials for tokens and the user object.
	// Failures carry the provider's message and are surfaced to the caller.
	Login(ctx context.Context, email, password string) (domainauth.TokenResponse, error)

	// Logout revokes accessToken upstream. It is best effort; callers log and ignore errors.
	Logout(ctx context.Context, accessToken string) error

	// JWKSURL is where the provider publishes its signing keys.
	JWKSURL() string

	// Issuer is the exact "iss" value tokens must carry.
	Issuer() string
}

// KeySource supplies verification keys for tokens issued by a JWKS URL.
//
// With a kid it returns exactly the matching key; without one it returns every
// published key and the caller tries them in order.
type KeySource interface {
	VerificationKeys(ctx context.Context, jwksURL, kid string) ([]any, error)
}

// LoginLimiter throttles repeated failed logins for the same account.
type LoginLimiter interface {
	// Allow reports whether another attempt for key may reach the IdP.
	Allow(ctx context.Context, key string) (bool, error)
	// Failure records a failed attempt for key.
	Failure(ctx context.Context, key string) error
	// Reset clears recorded failures for key.
	Reset(ctx context.Context, key string) error
}
