package httpx

import (
	"context"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the verified identity.
func SetIdentityInContext(ctx context.Context, id domainauth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the verified identity and whether one is present.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domainauth.Identity)
	return id, ok
}

// UserFromContext returns the verified claims, or nil when the request is unauthenticated.
func UserFromContext(ctx context.Context) domainauth.Claims {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.Claims
	}
	return nil
}

// AuthMethodFromContext returns how the caller authenticated, or "" when unauthenticated.
func AuthMethodFromContext(ctx context.Context) domainauth.AuthMethod {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.Method
	}
	return ""
}
