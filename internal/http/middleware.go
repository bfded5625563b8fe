package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
)

const (
	msgNoUserSession          = "Unauthorized: No user session found"
	msgInsufficientPermission = "Forbidden: Insufficient permissions"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			}
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			logger.InfoContext(r.Context(), "http", attrs...)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Recover returns a middleware that recovers from panics and logs them.
// The 500 response is only written when the handler has not started its own.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					if ww.wroteHeader {
						return
					}
					WriteError(ww, apperrors.Internal(http.StatusText(http.StatusInternalServerError)))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// RequireRoles returns a middleware that admits callers holding any of roles.
// It must run after Authenticate: a request without an identity gets 401,
// an identity without a matching role gets 403.
func RequireRoles(src domainauth.RoleSource, roles ...string) func(http.Handler) http.Handler {
	if src == nil {
		src = domainauth.DefaultRoleSources()
	}
	required := append([]string(nil), roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, apperrors.Unauthorized(msgNoUserSession))
				return
			}
			if domainauth.Authorize(src, id.Claims, required) == domainauth.Deny {
				WriteError(w, apperrors.Forbidden(msgInsufficientPermission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
