package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	mockauth "github.com/target/auth-bff/internal/mocks/auth"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/service"
	"github.com/target/auth-bff/internal/session"
	"github.com/target/auth-bff/internal/testutil"
)

func newAuthHandlers(f *authFixture, limiter ports.LoginLimiter) *AuthHandlers {
	return &AuthHandlers{
		Svc:        service.NewAuthService(service.AuthServiceOptions{Limiter: limiter, Metrics: f.metrics}),
		IdP:        Static[ports.IdPAdapter]{Value: f.idp},
		SessionKey: Static[session.Key]{Value: f.key},
		Cookies:    DefaultCookies(),
	}
}

func loginRequestBody(email, password string) *strings.Reader {
	return strings.NewReader(`{"email":"` + email + `","password":"` + password + `"}`)
}

func TestAuthHandlers_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	h := newAuthHandlers(f, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginRequestBody("mock.user@example.com", "password")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"email":"mock.user@example.com","sub":"fake-mock.user@example.com"}}`, rec.Body.String())

	cookies := responseCookies(t, rec)
	sess, csrf := cookies[DefaultSessionCookieName], cookies[DefaultCSRFCookieName]
	require.NotNil(t, sess)
	require.NotNil(t, csrf)
	assert.True(t, sess.HttpOnly)
	assert.False(t, csrf.HttpOnly)

	// The readable CSRF cookie carries the token sealed in the session.
	data, ok := session.Decrypt(sess.Value, f.key)
	require.True(t, ok)
	assert.Equal(t, csrf.Value, data.CSRFToken)
	assert.Equal(t, "access-1", data.AccessToken)
	assert.Equal(t, "refresh-1", data.RefreshToken)
	assert.NotZero(t, data.IssuedAt)
}

func TestAuthHandlers_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		mutate   func(h *AuthHandlers)
		wantCode int
		wantBody string
	}{
		{
			name:     "bad credentials",
			body:     `{"email":"mock.user@example.com","password":"wrong"}`,
			wantCode: http.StatusUnauthorized,
			wantBody: `{"error":"Invalid login credentials"}`,
		},
		{
			name:     "missing password",
			body:     `{"email":"mock.user@example.com"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"email and password are required"}`,
		},
		{
			name:     "invalid json",
			body:     `{"email":`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"invalid JSON body"}`,
		},
		{
			name:     "session key unavailable",
			body:     `{"email":"mock.user@example.com","password":"password"}`,
			mutate:   func(h *AuthHandlers) { h.SessionKey = Static[session.Key]{} },
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Server error: session key not configured"}`,
		},
		{
			name: "provider unavailable",
			body: `{"email":"mock.user@example.com","password":"password"}`,
			mutate: func(h *AuthHandlers) {
				h.IdP = ResolverFunc[ports.IdPAdapter](func(*http.Request) (ports.IdPAdapter, error) {
					return nil, errors.New("no tenant")
				})
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Server error: identity provider not configured"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			h := newAuthHandlers(f, nil)
			if tt.mutate != nil {
				tt.mutate(h)
			}
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Empty(t, responseCookies(t, rec))
		})
	}
}

func TestAuthHandlers_Login_RateLimited(t *testing.T) {
	f := newAuthFixture(t)
	h := newAuthHandlers(f, mockauth.NewMemoryLoginLimiter(2))

	for range 2 {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginRequestBody("mock.user@example.com", "nope")))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginRequestBody("Mock.User@example.com", "password")))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, f.idp.LoginCalls())
}

func TestAuthHandlers_Logout(t *testing.T) {
	t.Run("revokes and clears cookies", func(t *testing.T) {
		f := newAuthFixture(t)
		h := newAuthHandlers(f, nil)
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(f.sessionCookie(t, testutil.NewSession().WithAccessToken("at-1").Build()))

		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Logged out"}`, rec.Body.String())
		assert.Equal(t, []string{"at-1"}, f.idp.LoggedOut())
		cookies := responseCookies(t, rec)
		assert.Equal(t, -1, cookies[DefaultSessionCookieName].MaxAge)
		assert.Equal(t, -1, cookies[DefaultCSRFCookieName].MaxAge)
	})

	t.Run("provider failure is swallowed", func(t *testing.T) {
		f := newAuthFixture(t)
		f.idp.LogoutFunc = func(context.Context, string) error { return errors.New("revocation endpoint down") }
		h := newAuthHandlers(f, nil)
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(f.sessionCookie(t, testutil.NewSession().Build()))

		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, responseCookies(t, rec), 2)
	})

	t.Run("no session still clears", func(t *testing.T) {
		f := newAuthFixture(t)
		h := newAuthHandlers(f, nil)
		rec := httptest.NewRecorder()
		h.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, f.idp.LoggedOut())
		assert.Len(t, responseCookies(t, rec), 2)
	})

	t.Run("undecryptable session skips revoke", func(t *testing.T) {
		f := newAuthFixture(t)
		h := newAuthHandlers(f, nil)
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, f.idp.LoggedOut())
	})
}

func TestAuthHandlers_Session(t *testing.T) {
	f := newAuthFixture(t)
	h := newAuthHandlers(f, nil)

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Session(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":null}`, rec.Body.String())
		assert.Empty(t, responseCookies(t, rec))
	})

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.AddCookie(f.sessionCookie(t, testutil.NewSession().
			WithUser(domainauth.Claims{"email": "a@example.com"}).Build()))
		rec := httptest.NewRecorder()
		h.Session(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":{"email":"a@example.com"}}`, rec.Body.String())
	})

	t.Run("undecryptable cookie is deleted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: "not-a-session"})
		rec := httptest.NewRecorder()
		h.Session(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":null}`, rec.Body.String())
		ck := responseCookies(t, rec)[DefaultSessionCookieName]
		require.NotNil(t, ck)
		assert.Equal(t, -1, ck.MaxAge)
	})
}
