package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domainauth "github.com/target/auth-bff/internal/domain/auth"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/session"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth       AuthServiceInterface
	IdP        Resolver[ports.IdPAdapter]
	SessionKey Resolver[session.Key]
	Verifier   TokenVerifier
	Cookies    Cookies
	CSRF       CSRFConfig

	// Optional: override the adapter's JWKS URL and issuer.
	JWKSURL Resolver[string]
	Issuer  Resolver[string]

	// Roles are aggregated from RoleSource; RequiredRoles, when set, gates every /api route.
	RoleSource    domainauth.RoleSource
	RequiredRoles []string

	KeepUndecryptableCookie bool

	// Optional: the dev provider publishes its keys here in mock mode.
	DevJWKSPath    string
	DevJWKSHandler http.Handler
	// Optional: readiness checks by name, e.g. "redis".
	Readiness map[string]ReadinessCheck

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// NewRouter creates the gateway's HTTP handler.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if services.RoleSource == nil {
		services.RoleSource = domainauth.DefaultRoleSources()
	}
	services.CSRF.CookieName = services.Cookies.withDefaults().CSRFName
	if services.CSRF.Metrics == nil {
		services.CSRF.Metrics = services.Metrics
	}
	if services.CSRF.Logger == nil {
		services.CSRF.Logger = logger
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, Recover(logger), Logging(logger))

	r.Method(http.MethodGet, "/healthz", http.HandlerFunc(healthHandler))
	r.Method(http.MethodHead, "/healthz", http.HandlerFunc(healthHandler))
	r.Get("/readyz", readyHandler(services.Readiness))
	if services.DevJWKSHandler != nil && services.DevJWKSPath != "" {
		r.Method(http.MethodGet, services.DevJWKSPath, services.DevJWKSHandler)
	}

	authHandlers := &AuthHandlers{
		Svc:                     services.Auth,
		IdP:                     services.IdP,
		SessionKey:              services.SessionKey,
		Cookies:                 services.Cookies,
		KeepUndecryptableCookie: services.KeepUndecryptableCookie,
		Logger:                  logger,
	}
	registerAuthRoutes(r, authHandlers)

	authenticate := Authenticate(AuthConfig{
		IdP:                     services.IdP,
		SessionKey:              services.SessionKey,
		Verifier:                services.Verifier,
		Cookies:                 services.Cookies,
		JWKSURL:                 services.JWKSURL,
		Issuer:                  services.Issuer,
		KeepUndecryptableCookie: services.KeepUndecryptableCookie,
		Metrics:                 services.Metrics,
		Logger:                  logger,
	})
	r.Route("/api", func(api chi.Router) {
		api.Use(CSRFProtection(services.CSRF), authenticate)
		if len(services.RequiredRoles) > 0 {
			api.Use(RequireRoles(services.RoleSource, services.RequiredRoles...))
		}
		api.Get("/me", meHandler(services.RoleSource))
	})

	return r
}

// registerAuthRoutes mounts the session lifecycle endpoints. None of them
// carry the CSRF guard: login runs before any CSRF cookie exists, and logout
// must always clear the local session.
func registerAuthRoutes(r chi.Router, h *AuthHandlers) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/login", h.Login)
		ar.Post("/logout", h.Logout)
		ar.Get("/session", h.Session)
	})
}

type meResponse struct {
	User       domainauth.Claims `json:"user"`
	AuthMethod string            `json:"auth_method"`
	Roles      []string          `json:"roles"`
}

// meHandler echoes the verified identity and the roles derived from it.
func meHandler(src domainauth.RoleSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		roles := src.Roles(id.Claims)
		if roles == nil {
			roles = []string{}
		}
		WriteJSON(w, http.StatusOK, meResponse{
			User:       id.Claims,
			AuthMethod: string(id.Method),
			Roles:      roles,
		})
	}
}
