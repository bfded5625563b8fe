package devauth

// Package devauth provides a config-driven identity provider for local development.
// It signs its own access tokens and publishes the matching JWKS so the full
// verification path runs without an external IdP.

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/ports"
)

// JWKSPath is where the gateway mounts JWKSHandler.
const JWKSPath = "/.well-known/dev-jwks.json"

// Config controls the dev identity provider.
// Roles may be empty; every other field is required except TokenTTL.
type Config struct {
	// BaseURL is the externally visible gateway origin, used for iss and the JWKS URL.
	BaseURL  string
	UserID   string
	Email    string
	Password string
	Roles    []string
	TokenTTL time.Duration // default 1h when zero
}

// Adapter implements ports.IdPAdapter for local development.
type Adapter struct {
	baseURL  string
	userID   string
	email    string
	password string
	roles    []string
	ttl      time.Duration

	kid  string
	key  *rsa.PrivateKey
	jwks []byte

	now func() time.Time
}

var _ ports.IdPAdapter = (*Adapter)(nil)

// New constructs a dev adapter with a fresh signing key.
func New(cfg Config) (*Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	switch {
	case base == "":
		return nil, errors.New("dev auth: BaseURL is required")
	case cfg.UserID == "":
		return nil, errors.New("dev auth: UserID is required")
	case cfg.Email == "":
		return nil, errors.New("dev auth: Email is required")
	case cfg.Password == "":
		return nil, errors.New("dev auth: Password is required")
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("dev auth: generate key: %w", err)
	}
	kid, err := randomString(16)
	if err != nil {
		return nil, fmt.Errorf("dev auth: generate kid: %w", err)
	}
	jwks, err := publicJWKS(&key.PublicKey, kid)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		baseURL:  base,
		userID:   cfg.UserID,
		email:    cfg.Email,
		password: cfg.Password,
		roles:    append([]string(nil), cfg.Roles...),
		ttl:      ttl,
		kid:      kid,
		key:      key,
		jwks:     jwks,
		now:      time.Now,
	}, nil
}

func (*Adapter) Name() string { return "dev" }

func (a *Adapter) JWKSURL() string { return a.baseURL + JWKSPath }

func (a *Adapter) Issuer() string { return a.baseURL + "/dev" }

// Login accepts only the configured credentials.
func (a *Adapter) Login(_ context.Context, email, password string) (domainauth.TokenResponse, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(a.email))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !emailOK || !passOK {
		return domainauth.TokenResponse{}, apperrors.Upstream("Invalid login credentials")
	}

	now := a.now()
	roles := make([]any, len(a.roles))
	for i, r := range a.roles {
		roles[i] = r
	}
	user := domainauth.Claims{
		"sub":   a.userID,
		"email": a.email,
		"role":  "authenticated",
		"roles": roles,
	}

	claims := jwt.MapClaims{
		"iss": a.Issuer(),
		"aud": "authenticated",
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}
	for k, v := range user {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = a.kid
	signed, err := tok.SignedString(a.key)
	if err != nil {
		return domainauth.TokenResponse{}, fmt.Errorf("dev auth: sign token: %w", err)
	}

	return domainauth.TokenResponse{
		AccessToken: signed,
		User:        user,
		ExpiresIn:   int64(a.ttl / time.Second),
	}, nil
}

// Logout has nothing to revoke; dev tokens simply expire.
func (*Adapter) Logout(context.Context, string) error { return nil }

// JWKSHandler serves the public signing key.
func (a *Adapter) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(a.jwks)
	})
}

func publicJWKS(pub *rsa.PublicKey, kid string) ([]byte, error) {
	key, err := jwk.Import(pub)
	if err != nil {
		return nil, fmt.Errorf("dev auth: import key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, fmt.Errorf("dev auth: set kid: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, "RS256"); err != nil {
		return nil, fmt.Errorf("dev auth: set alg: %w", err)
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("dev auth: set use: %w", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("dev auth: build set: %w", err)
	}
	return json.Marshal(set)
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
