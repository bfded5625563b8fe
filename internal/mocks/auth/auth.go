package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	"github.com/target/auth-bff/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdPAdapter   = (*FakeIdP)(nil)
	_ ports.KeySource    = (*StaticKeySource)(nil)
	_ ports.LoginLimiter = (*MemoryLoginLimiter)(nil)
)

// ErrInvalidCredentials is returned by FakeIdP for unknown email/password pairs.
var ErrInvalidCredentials = errors.New("Invalid login credentials")

// FakeIdP simulates an identity provider with deterministic token minting.
type FakeIdP struct {
	LoginFunc  func(ctx context.Context, email, password string) (domainauth.TokenResponse, error)
	LogoutFunc func(ctx context.Context, accessToken string) error

	ProviderName string
	URL          string
	IssuerValue  string

	// Users maps email to password for the default Login behavior.
	Users map[string]string

	mu         sync.Mutex
	loginCalls int
	loggedOut  []string
}

// NewFakeIdP creates a FakeIdP with a single known user.
func NewFakeIdP() *FakeIdP {
	return &FakeIdP{
		ProviderName: "fake",
		URL:          "https://fake-idp/.well-known/jwks.json",
		IssuerValue:  "https://fake-idp",
		Users:        map[string]string{"mock.user@example.com": "password"},
	}
}

func (f *FakeIdP) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

func (f *FakeIdP) JWKSURL() string { return f.URL }

func (f *FakeIdP) Issuer() string { return f.IssuerValue }

func (f *FakeIdP) Login(ctx context.Context, email, password string) (domainauth.TokenResponse, error) {
	f.mu.Lock()
	f.loginCalls++
	n := f.loginCalls
	f.mu.Unlock()

	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, email, password)
	}
	if want, ok := f.Users[email]; !ok || want != password {
		return domainauth.TokenResponse{}, ErrInvalidCredentials
	}
	return domainauth.TokenResponse{
		AccessToken:  fmt.Sprintf("access-%d", n),
		RefreshToken: fmt.Sprintf("refresh-%d", n),
		User:         domainauth.Claims{"email": email, "sub": "fake-" + email},
		ExpiresIn:    3600,
	}, nil
}

func (f *FakeIdP) Logout(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	f.loggedOut = append(f.loggedOut, accessToken)
	f.mu.Unlock()

	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, accessToken)
	}
	return nil
}

// LoginCalls returns how many times Login was invoked.
func (f *FakeIdP) LoginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

// LoggedOut returns the access tokens passed to Logout, in order.
func (f *FakeIdP) LoggedOut() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loggedOut...)
}

// StaticKeySource returns the same keys for every lookup.
type StaticKeySource struct {
	Keys []any
	Err  error
}

func (s StaticKeySource) VerificationKeys(_ context.Context, _, _ string) ([]any, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Keys, nil
}

// MemoryLoginLimiter counts failures in memory without expiry.
type MemoryLoginLimiter struct {
	Limit int

	mu       sync.Mutex
	failures map[string]int
}

// NewMemoryLoginLimiter creates a limiter refusing attempts once limit failures are recorded.
func NewMemoryLoginLimiter(limit int) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{Limit: limit, failures: make(map[string]int)}
}

func (m *MemoryLoginLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[key] < m.Limit, nil
}

func (m *MemoryLoginLimiter) Failure(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[key]++
	return nil
}

func (m *MemoryLoginLimiter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key)
	return nil
}
