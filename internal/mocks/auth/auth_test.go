package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
)

func TestFakeIdP_Login_Defaults(t *testing.T) {
	idp := NewFakeIdP()
	ctx := context.Background()

	resp, err := idp.Login(ctx, "mock.user@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.AccessToken)
	assert.Equal(t, "mock.user@example.com", resp.User["email"])

	resp2, err := idp.Login(ctx, "mock.user@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "access-2", resp2.AccessToken)
	assert.Equal(t, 2, idp.LoginCalls())
}

func TestFakeIdP_Login_WrongPassword(t *testing.T) {
	idp := NewFakeIdP()
	_, err := idp.Login(context.Background(), "mock.user@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFakeIdP_CustomFuncs(t *testing.T) {
	idp := &FakeIdP{
		LoginFunc: func(context.Context, string, string) (domainauth.TokenResponse, error) {
			return domainauth.TokenResponse{AccessToken: "custom"}, nil
		},
		LogoutFunc: func(context.Context, string) error { return errors.New("upstream down") },
	}
	resp, err := idp.Login(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "custom", resp.AccessToken)

	require.Error(t, idp.Logout(context.Background(), "custom"))
	assert.Equal(t, []string{"custom"}, idp.LoggedOut())
	assert.Equal(t, "fake", idp.Name())
}

func TestMemoryLoginLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLoginLimiter(2)

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	require.NoError(t, l.Failure(ctx, "a"))
	require.NoError(t, l.Failure(ctx, "a"))
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, "a"))
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
}
