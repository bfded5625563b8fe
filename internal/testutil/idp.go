package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Signer is an RSA signing key with a key id.
type Signer struct {
	KID string
	Key *rsa.PrivateKey
}

// NewSigner generates a 2048-bit RSA signer.
func NewSigner(t TestingTB, kid string) Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return Signer{KID: kid, Key: key}
}

// Sign produces an RS256 token over claims. An empty KID omits the header.
func (s Signer) Sign(t TestingTB, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.KID != "" {
		tok.Header["kid"] = s.KID
	}
	signed, err := tok.SignedString(s.Key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// TestIssuer serves a JWKS document over HTTP and mints tokens for it.
// Keys may be rotated while the server runs.
type TestIssuer struct {
	Server *httptest.Server
	Issuer string

	mu      sync.Mutex
	signers []Signer
	fetches atomic.Int64
	failing atomic.Bool
}

// NewTestIssuer starts a JWKS server publishing one key with id "key-1".
func NewTestIssuer(t TestingTB) *TestIssuer {
	t.Helper()
	ti := &TestIssuer{Issuer: "https://issuer.test/auth/v1"}
	ti.signers = []Signer{NewSigner(t, "key-1")}

	ti.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ti.fetches.Add(1)
		if ti.failing.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		buf, err := ti.jwksJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf)
	}))
	t.Cleanup(ti.Server.Close)
	return ti
}

// JWKSURL is the URL of the served key set.
func (ti *TestIssuer) JWKSURL() string {
	return ti.Server.URL + "/.well-known/jwks.json"
}

// Fetches reports how many times the key set was requested.
func (ti *TestIssuer) Fetches() int64 {
	return ti.fetches.Load()
}

// SetFailing makes the JWKS endpoint answer 503 while on is true.
func (ti *TestIssuer) SetFailing(on bool) {
	ti.failing.Store(on)
}

// Signer returns the current signing key.
func (ti *TestIssuer) Signer() Signer {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.signers[len(ti.signers)-1]
}

// Rotate publishes an additional key and makes it the current signer.
func (ti *TestIssuer) Rotate(t TestingTB, kid string) Signer {
	t.Helper()
	s := NewSigner(t, kid)
	ti.mu.Lock()
	ti.signers = append(ti.signers, s)
	ti.mu.Unlock()
	return s
}

// Token mints a token from the current signer with iss, sub and a one hour
// expiry; extra claims override the defaults.
func (ti *TestIssuer) Token(t TestingTB, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": ti.Issuer,
		"sub": "user-1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return ti.Signer().Sign(t, claims)
}

func (ti *TestIssuer) jwksJSON() ([]byte, error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	set := jwk.NewSet()
	for _, s := range ti.signers {
		key, err := jwk.Import(&s.Key.PublicKey)
		if err != nil {
			return nil, err
		}
		if err := key.Set(jwk.KeyIDKey, s.KID); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.AlgorithmKey, "RS256"); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, err
		}
	}
	return json.Marshal(set)
}
