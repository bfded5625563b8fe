package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/mocks"
	mockauth "github.com/target/auth-bff/internal/mocks/auth"
	"github.com/target/auth-bff/internal/observability/metrics"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/session"
	"github.com/target/auth-bff/internal/testutil"
)

func newTestKey(t *testing.T) session.Key {
	t.Helper()
	k, err := session.GenerateKey()
	require.NoError(t, err)
	return k
}

func TestAuthService_Login_Success(t *testing.T) {
	key := newTestKey(t)
	idp := mockauth.NewFakeIdP()
	var rec statsd.Recorder
	svc := NewAuthService(AuthServiceOptions{
		Metrics:      &rec,
		Now:          testutil.FixedTimeFunc(testutil.TestTime()),
		NewCSRFToken: func() string { return "csrf-fixed" },
	})

	res, err := svc.Login(context.Background(), LoginInput{
		IdP:      idp,
		Key:      key,
		Email:    "mock.user@example.com",
		Password: "password",
	})
	require.NoError(t, err)
	assert.Equal(t, "csrf-fixed", res.CSRFToken)
	assert.Equal(t, "mock.user@example.com", res.User["email"])
	assert.Equal(t, int64(3600), res.ExpiresIn)

	sess, ok := session.Decrypt(res.SessionCookie, key)
	require.True(t, ok)
	assert.Equal(t, "access-1", sess.AccessToken)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.Equal(t, res.CSRFToken, sess.CSRFToken)
	assert.Equal(t, testutil.TestTime().Unix(), sess.IssuedAt)

	logins := rec.Samples(metrics.NameLogin)
	require.Len(t, logins, 1)
	assert.Equal(t, metrics.ResultSuccess, logins[0].Tags["result"])
	assert.Equal(t, "fake", logins[0].Tags["provider"])
}

func TestAuthService_Login_UpstreamFailureCarriesMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockIdPAdapter(ctrl)
	idp.EXPECT().Name().Return("supabase").AnyTimes()
	idp.EXPECT().Login(gomock.Any(), "a@example.com", "bad").
		Return(domainauth.TokenResponse{}, apperrors.Upstream("Invalid login credentials"))

	svc := NewAuthService(AuthServiceOptions{})
	res, err := svc.Login(context.Background(), LoginInput{IdP: idp, Key: newTestKey(t), Email: "a@example.com", Password: "bad"})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUpstream))
	assert.Equal(t, "Invalid login credentials", apperrors.PublicMessage(err))
}

func TestAuthService_Login_PlainErrorMessage(t *testing.T) {
	idp := mockauth.NewFakeIdP()
	svc := NewAuthService(AuthServiceOptions{})

	_, err := svc.Login(context.Background(), LoginInput{IdP: idp, Key: newTestKey(t), Email: "mock.user@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, mockauth.ErrInvalidCredentials.Error(), apperrors.PublicMessage(err))
}

func TestAuthService_Login_Validation(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{})
	key := newTestKey(t)
	idp := mockauth.NewFakeIdP()

	tests := []struct {
		name string
		in   LoginInput
		code apperrors.ErrorCode
	}{
		{name: "missing email", in: LoginInput{IdP: idp, Key: key, Password: "x"}, code: apperrors.ErrCodeValidation},
		{name: "missing password", in: LoginInput{IdP: idp, Key: key, Email: "a@b.c"}, code: apperrors.ErrCodeValidation},
		{name: "no provider", in: LoginInput{Key: key, Email: "a@b.c", Password: "x"}, code: apperrors.ErrCodeMisconfigured},
		{name: "no key", in: LoginInput{IdP: idp, Email: "a@b.c", Password: "x"}, code: apperrors.ErrCodeMisconfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.in)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
	assert.Zero(t, idp.LoginCalls())
}

func TestAuthService_Login_RateLimited(t *testing.T) {
	idp := mockauth.NewFakeIdP()
	limiter := mockauth.NewMemoryLoginLimiter(2)
	svc := NewAuthService(AuthServiceOptions{Limiter: limiter})
	key := newTestKey(t)
	ctx := context.Background()

	for range 2 {
		_, err := svc.Login(ctx, LoginInput{IdP: idp, Key: key, Email: "mock.user@example.com", Password: "wrong"})
		require.True(t, apperrors.IsCode(err, apperrors.ErrCodeUpstream))
	}

	_, err := svc.Login(ctx, LoginInput{IdP: idp, Key: key, Email: "Mock.User@example.com", Password: "password"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRateLimited))
	assert.Equal(t, 2, idp.LoginCalls())
}

func TestAuthService_Login_SuccessResetsLimiter(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockLoginLimiter(ctrl)
	gomock.InOrder(
		limiter.EXPECT().Allow(gomock.Any(), "mock.user@example.com").Return(true, nil),
		limiter.EXPECT().Reset(gomock.Any(), "mock.user@example.com").Return(nil),
	)

	svc := NewAuthService(AuthServiceOptions{Limiter: limiter})
	_, err := svc.Login(context.Background(), LoginInput{
		IdP: mockauth.NewFakeIdP(), Key: newTestKey(t), Email: "mock.user@example.com", Password: "password",
	})
	require.NoError(t, err)
}

func TestAuthService_Login_LimiterOutageFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockLoginLimiter(ctrl)
	limiter.EXPECT().Allow(gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	limiter.EXPECT().Reset(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	svc := NewAuthService(AuthServiceOptions{Limiter: limiter})
	_, err := svc.Login(context.Background(), LoginInput{
		IdP: mockauth.NewFakeIdP(), Key: newTestKey(t), Email: "mock.user@example.com", Password: "password",
	})
	require.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	key := newTestKey(t)
	sealed, err := session.Encrypt(testutil.NewSession().WithAccessToken("at-1").Build(), key)
	require.NoError(t, err)

	t.Run("revokes access token", func(t *testing.T) {
		idp := mockauth.NewFakeIdP()
		NewAuthService(AuthServiceOptions{}).Logout(context.Background(), idp, key, sealed)
		assert.Equal(t, []string{"at-1"}, idp.LoggedOut())
	})

	t.Run("upstream failure is swallowed", func(t *testing.T) {
		idp := mockauth.NewFakeIdP()
		idp.LogoutFunc = func(context.Context, string) error { return errors.New("revoke failed") }
		assert.NotPanics(t, func() {
			NewAuthService(AuthServiceOptions{}).Logout(context.Background(), idp, key, sealed)
		})
	})

	t.Run("undecryptable cookie skips provider", func(t *testing.T) {
		idp := mockauth.NewFakeIdP()
		NewAuthService(AuthServiceOptions{}).Logout(context.Background(), idp, newTestKey(t), sealed)
		assert.Empty(t, idp.LoggedOut())
	})

	t.Run("no cookie skips provider", func(t *testing.T) {
		idp := mockauth.NewFakeIdP()
		NewAuthService(AuthServiceOptions{}).Logout(context.Background(), idp, key, "")
		assert.Empty(t, idp.LoggedOut())
	})
}

func TestAuthService_Session(t *testing.T) {
	key := newTestKey(t)
	svc := NewAuthService(AuthServiceOptions{Now: time.Now})
	sealed, err := session.Encrypt(testutil.NewSession().Build(), key)
	require.NoError(t, err)

	user, ok := svc.Session(context.Background(), key, sealed)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", user["email"])

	_, ok = svc.Session(context.Background(), key, "")
	assert.False(t, ok)

	_, ok = svc.Session(context.Background(), key, sealed[:len(sealed)-4]+"AAAA")
	assert.False(t, ok)
}
