package oidc

// Package oidc adapts any standards-compliant OpenID Connect provider to the
// gateway's identity provider contract using the Resource Owner Password grant.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/ports"
)

const (
	providerName = "oidc"
	loginFailed  = "Login failed"
)

// Config holds configuration for the OIDC adapter.
type Config struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
	// RequestsPerSecond caps outbound token and revocation calls; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// discoveryExtras are discovery fields go-oidc does not expose directly.
type discoveryExtras struct {
	Issuer             string `json:"issuer"`
	JwksURI            string `json:"jwks_uri"`
	RevocationEndpoint string `json:"revocation_endpoint"`
}

// Adapter implements ports.IdPAdapter on top of go-oidc and oauth2.
type Adapter struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	issuer        string
	jwksURL       string
	revocationURL string
}

var _ ports.IdPAdapter = (*Adapter)(nil)

// New performs discovery and returns a ready adapter.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	var extras discoveryExtras
	if err := op.Claims(&extras); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	if extras.JwksURI == "" {
		return nil, errors.New("discovery document has no jwks_uri")
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	a := &Adapter{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:    httpClient,
		oidcProvider:  op,
		verifier:      op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		issuer:        extras.Issuer,
		jwksURL:       extras.JwksURI,
		revocationURL: extras.RevocationEndpoint,
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

// JWKSURL returns the discovered jwks_uri.
func (a *Adapter) JWKSURL() string { return a.jwksURL }

// Issuer returns the discovered issuer.
func (a *Adapter) Issuer() string { return a.issuer }

// Login performs the password grant and assembles the user object from the
// verified ID token, filling gaps from the userinfo endpoint.
func (a *Adapter) Login(ctx context.Context, email, password string) (domainauth.TokenResponse, error) {
	var out domainauth.TokenResponse
	if err := a.wait(ctx); err != nil {
		return out, apperrors.Wrap(err, apperrors.ErrCodeUpstream, loginFailed)
	}

	ctx = gooidc.ClientContext(ctx, a.httpClient)
	tok, err := a.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return out, apperrors.Wrap(err, apperrors.ErrCodeUpstream, retrieveMessage(err))
	}

	user, err := a.userClaims(ctx, tok)
	if err != nil {
		return out, apperrors.Wrap(err, apperrors.ErrCodeUpstream, loginFailed)
	}

	out = domainauth.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		User:         user,
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return out, nil
}

// Logout revokes accessToken via RFC 7009 when the provider advertises a
// revocation endpoint. Without one there is nothing to do upstream.
func (a *Adapter) Logout(ctx context.Context, accessToken string) error {
	if a.revocationURL == "" {
		return nil
	}
	if err := a.wait(ctx); err != nil {
		return err
	}

	form := url.Values{
		"token":           {accessToken},
		"token_type_hint": {"access_token"},
	}
	// Public clients identify themselves in the body.
	if a.config.ClientSecret == "" {
		form.Set("client_id", a.config.ClientID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if a.config.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(a.config.ClientID), url.QueryEscape(a.config.ClientSecret))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "revocation failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return apperrors.Upstream(fmt.Sprintf("revocation returned status %d", resp.StatusCode))
	}
	return nil
}

func (a *Adapter) userClaims(ctx context.Context, tok *oauth2.Token) (domainauth.Claims, error) {
	claims := domainauth.Claims{}

	if rawID, err := getIDTokenFromToken(tok); err == nil {
		idTok, verr := a.verifier.Verify(ctx, rawID)
		if verr != nil {
			return nil, fmt.Errorf("verify id_token: %w", verr)
		}
		if cerr := idTok.Claims(&claims); cerr != nil {
			return nil, fmt.Errorf("parse id_token claims: %w", cerr)
		}
	}

	if claims["email"] == nil || claims["sub"] == nil {
		ui, err := a.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			if len(claims) == 0 {
				return nil, fmt.Errorf("get user info: %w", err)
			}
		} else {
			var extra domainauth.Claims
			if cerr := ui.Claims(&extra); cerr != nil {
				return nil, fmt.Errorf("decode user info: %w", cerr)
			}
			fillMissing(claims, extra)
		}
	}

	normalizeADClaims(claims)
	return claims, nil
}

func (a *Adapter) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	return nil
}

// fillMissing copies keys from src that dst does not already have.
func fillMissing(dst, src domainauth.Claims) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// normalizeADClaims maps AD/ADFS claim names onto the standard ones when the
// standard ones are missing.
func normalizeADClaims(c domainauth.Claims) {
	str := func(k string) string {
		s, _ := c[k].(string)
		return s
	}
	if email := firstNonEmpty(str("email"), str("mail")); email != "" {
		c["email"] = email
	}
	if _, ok := c["roles"]; !ok {
		if groups, ok := c["memberof"]; ok {
			c["roles"] = groups
		}
	}
	if name := firstNonEmpty(str("given_name"), str("firstname")); name != "" {
		c["given_name"] = name
	}
	if name := firstNonEmpty(str("family_name"), str("lastname")); name != "" {
		c["family_name"] = name
	}
}

// retrieveMessage extracts the provider's error description from a token endpoint failure.
func retrieveMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if msg := firstNonEmpty(re.ErrorDescription, re.ErrorCode); msg != "" {
			return msg
		}
	}
	return loginFailed
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
