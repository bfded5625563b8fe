package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/auth-bff/internal/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"unauthorized", apperrors.Unauthorized("Unauthorized: Invalid or expired token"), http.StatusUnauthorized, `{"error":"Unauthorized: Invalid or expired token"}`},
		{"forbidden", apperrors.Forbidden("Invalid CSRF token"), http.StatusForbidden, `{"error":"Invalid CSRF token"}`},
		{"misconfigured", apperrors.Misconfigured("Server error: JWKS URL not configured"), http.StatusInternalServerError, `{"error":"Server error: JWKS URL not configured"}`},
		{"plain error is hidden", errors.New("secret detail"), http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","extra":1}`))
	require.True(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, "a@example.com", dst.Email)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	assert.False(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid JSON body"}`, rec.Body.String())
}
