// Package supabase implements the identity provider contract against Supabase Auth (GoTrue).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/ports"
)

const (
	providerName     = "supabase"
	loginFailed      = "Login failed"
	maxErrorBodySize = 64 << 10
)

// Config holds configuration for the Supabase adapter.
type Config struct {
	// URL is the project URL, e.g. https://xyzcompany.supabase.co.
	URL string
	// APIKey is the project's anon or service key sent as the apikey header.
	APIKey     string
	HTTPClient *http.Client // Optional, defaults to a client with a 10s timeout
	// RequestsPerSecond caps outbound calls; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// Adapter talks to the Supabase Auth REST API.
type Adapter struct {
	authURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

var _ ports.IdPAdapter = (*Adapter)(nil)

// New creates a Supabase adapter.
func New(cfg Config) (*Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("supabase API key is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	a := &Adapter{
		authURL: base + "/auth/v1",
		apiKey:  cfg.APIKey,
		client:  client,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return a, nil
}

func (*Adapter) Name() string { return providerName }

// JWKSURL returns the project's published signing keys.
func (a *Adapter) JWKSURL() string { return a.authURL + "/.well-known/jwks.json" }

// Issuer returns the "iss" value Supabase stamps on access tokens.
func (a *Adapter) Issuer() string { return a.authURL }

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login performs the password grant.
func (a *Adapter) Login(ctx context.Context, email, password string) (domainauth.TokenResponse, error) {
	var out domainauth.TokenResponse

	body, err := json.Marshal(passwordGrant{Email: email, Password: password})
	if err != nil {
		return out, fmt.Errorf("encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL+"/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.do(ctx, req)
	if err != nil {
		return out, apperrors.Wrap(err, apperrors.ErrCodeUpstream, loginFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return out, apperrors.Wrap(
			fmt.Errorf("supabase token endpoint returned %d", resp.StatusCode),
			apperrors.ErrCodeUpstream,
			errorMessage(raw),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domainauth.TokenResponse{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream, loginFailed)
	}
	return out, nil
}

// Logout revokes the session behind accessToken.
func (a *Adapter) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL+"/logout", http.NoBody)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.do(ctx, req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "logout failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Upstream(fmt.Sprintf("logout returned status %d", resp.StatusCode))
	}
	return nil
}

func (a *Adapter) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	return a.client.Do(req)
}

// errorMessage picks the most descriptive message from a GoTrue error body.
func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return loginFailed
	}
	for _, path := range []string{"error_description", "msg", "message"} {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return v.Str
		}
	}
	return loginFailed
}
