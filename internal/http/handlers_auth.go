package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	apperrors "github.com/target/auth-bff/internal/errors"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/service"
	"github.com/target/auth-bff/internal/session"
)

const msgLoggedOut = "Logged out"

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, idp ports.IdPAdapter, key session.Key, cookie string)
	Session(ctx context.Context, key session.Key, cookie string) (domainauth.Claims, bool)
}

// AuthHandlers provides the session lifecycle endpoints.
type AuthHandlers struct {
	Svc        AuthServiceInterface
	IdP        Resolver[ports.IdPAdapter]
	SessionKey Resolver[session.Key]
	Cookies    Cookies
	// KeepUndecryptableCookie disables deleting a session cookie that fails to decrypt.
	KeepUndecryptableCookie bool
	Logger                  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User domainauth.Claims `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials with the provider and issues the session and CSRF cookies.
// POST /auth/login {email, password}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !DecodeJSON(w, r, &body) {
		return
	}

	idp, err := h.resolveIdP(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	key, err := h.resolveKey(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.Svc.Login(r.Context(), service.LoginInput{
		IdP:      idp,
		Key:      key,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		h.logger().InfoContext(r.Context(), "login failed", "provider", idp.Name(), "error", err)
		WriteError(w, err)
		return
	}

	h.Cookies.SetLogin(w, res.SessionCookie, res.CSRFToken, res.ExpiresIn)
	WriteJSON(w, http.StatusOK, userResponse{User: res.User})
}

// Logout revokes the session at the provider when possible and always clears both cookies.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := h.Cookies.Session(r); raw != "" {
		idp, idpErr := h.resolveIdP(r)
		key, keyErr := h.resolveKey(r)
		if idpErr != nil || keyErr != nil {
			h.logger().WarnContext(r.Context(), "skipping provider logout",
				"idp_error", idpErr,
				"key_error", keyErr,
			)
		} else {
			h.Svc.Logout(r.Context(), idp, key, raw)
		}
	}

	h.Cookies.ClearAll(w)
	WriteJSON(w, http.StatusOK, messageResponse{Message: msgLoggedOut})
}

// Session reports the user held in the session cookie, or null when there is none.
// GET /auth/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	raw := h.Cookies.Session(r)
	if raw == "" {
		WriteJSON(w, http.StatusOK, userResponse{})
		return
	}

	key, err := h.resolveKey(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	user, ok := h.Svc.Session(r.Context(), key, raw)
	if !ok {
		// Undecryptable and absent sessions look the same to the caller.
		if !h.KeepUndecryptableCookie {
			h.Cookies.ClearSession(w)
		}
		WriteJSON(w, http.StatusOK, userResponse{})
		return
	}
	WriteJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *AuthHandlers) resolveIdP(r *http.Request) (ports.IdPAdapter, error) {
	if h.IdP == nil {
		return nil, apperrors.Misconfigured(msgNoIdP)
	}
	idp, err := h.IdP.Resolve(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMisconfigured, msgNoIdP)
	}
	if idp == nil {
		return nil, apperrors.Misconfigured(msgNoIdP)
	}
	return idp, nil
}

func (h *AuthHandlers) resolveKey(r *http.Request) (session.Key, error) {
	if h.SessionKey == nil {
		return session.Key{}, apperrors.Misconfigured(msgNoSessionKey)
	}
	key, err := h.SessionKey.Resolve(r)
	if err != nil {
		return session.Key{}, apperrors.Wrap(err, apperrors.ErrCodeMisconfigured, msgNoSessionKey)
	}
	if !key.Valid() {
		return session.Key{}, apperrors.Misconfigured(msgNoSessionKey)
	}
	return key, nil
}
