// Package mocks provides mock implementations of the gateway ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	idp := mocks.NewMockIdPAdapter(ctrl)
//	idp.EXPECT().Login(gomock.Any(), "a@example.com", "pw").Return(resp, nil)
package mocks

// Generate mock for IdPAdapter interface from internal/ports package.
// This creates MockIdPAdapter with methods for all IdPAdapter interface methods:
// Name, Login, Logout, JWKSURL, Issuer
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=idp_adapter_mock.go github.com/target/auth-bff/internal/ports IdPAdapter

// Generate mock for LoginLimiter interface from internal/ports package.
// This creates MockLoginLimiter with methods for all LoginLimiter interface methods:
// Allow, Failure, Reset
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=login_limiter_mock.go github.com/target/auth-bff/internal/ports LoginLimiter
