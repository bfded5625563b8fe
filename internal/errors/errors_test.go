package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  Unauthorized("invalid or expired token"),
			want: "invalid or expired token",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeUpstream,
				Message: "login failed",
				Cause:   errors.New("connection refused"),
			},
			want: "login failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause through AppError")
	}
}

func TestWrap_NilError(t *testing.T) {
	if got := Wrap(nil, ErrCodeInternal, "x"); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}
}

func TestIsCode_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("resolve: %w", Forbidden("invalid CSRF token"))
	if !IsCode(err, ErrCodeForbidden) {
		t.Errorf("expected forbidden code through wrapping")
	}
	if IsCode(err, ErrCodeUnauthorized) {
		t.Errorf("did not expect unauthorized code")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Errorf("plain errors carry no code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthorized("x"), http.StatusUnauthorized},
		{Upstream("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{Validation("x"), http.StatusBadRequest},
		{RateLimited("x"), http.StatusTooManyRequests},
		{Misconfigured("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPublicMessage_HidesCause(t *testing.T) {
	err := Wrap(errors.New("kid abc not found"), ErrCodeUnauthorized, "invalid or expired token")
	if got := PublicMessage(err); got != "invalid or expired token" {
		t.Errorf("PublicMessage = %q", got)
	}
	if got := PublicMessage(errors.New("secret detail")); got != "Internal Server Error" {
		t.Errorf("PublicMessage(plain) = %q", got)
	}
}
