package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	mockauth "github.com/target/auth-bff/internal/mocks/auth"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/service"
	"github.com/target/auth-bff/internal/session"
	"github.com/target/auth-bff/internal/testutil"
)

// authFixture wires a fake provider, a signing key and a session key together.
type authFixture struct {
	signer   testutil.Signer
	idp      *mockauth.FakeIdP
	key      session.Key
	verifier *service.TokenVerifier
	metrics  *statsd.Recorder
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	signer := testutil.NewSigner(t, "k1")
	key, err := session.GenerateKey()
	require.NoError(t, err)
	return &authFixture{
		signer: signer,
		idp:    mockauth.NewFakeIdP(),
		key:    key,
		verifier: service.NewTokenVerifier(service.TokenVerifierOptions{
			Keys: mockauth.StaticKeySource{Keys: []any{&signer.Key.PublicKey}},
		}),
		metrics: &statsd.Recorder{},
	}
}

// token mints a valid access token for the fake provider; extra overrides claims.
func (f *authFixture) token(t *testing.T, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": f.idp.Issuer(),
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return f.signer.Sign(t, claims)
}

func (f *authFixture) sessionCookie(t *testing.T, s domainauth.SessionData) *http.Cookie {
	t.Helper()
	sealed, err := session.Encrypt(s, f.key)
	require.NoError(t, err)
	return &http.Cookie{Name: DefaultSessionCookieName, Value: sealed}
}

func (f *authFixture) authConfig() AuthConfig {
	return AuthConfig{
		IdP:        Static[ports.IdPAdapter]{Value: f.idp},
		SessionKey: Static[session.Key]{Value: f.key},
		Verifier:   f.verifier,
		Cookies:    DefaultCookies(),
		Metrics:    f.metrics,
	}
}

// captureIdentity records the identity seen by the downstream handler.
type captureIdentity struct {
	called bool
	id     domainauth.Identity
	ok     bool
}

func (c *captureIdentity) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.id, c.ok = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}
