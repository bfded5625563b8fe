package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/auth-bff/config"
	"github.com/target/auth-bff/internal/adapters/devauth"
	httpx "github.com/target/auth-bff/internal/http"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/session"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Auth    *AuthComponents
	Redis   redis.UniversalClient
	Metrics statsd.Sink
	Logger  *slog.Logger
	// Errors receives the listener error if the server stops unexpectedly.
	Errors chan<- error
}

// BuildHandler assembles the router from the wired auth components.
func BuildHandler(cfg HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Cookies:                 cookiesFromConfig(appCfg.Session),
		CSRF:                    csrfFromConfig(appCfg.Session),
		RequiredRoles:           appCfg.Auth.RequiredRoles,
		KeepUndecryptableCookie: appCfg.Session.KeepUndecryptableCookie,
		JWKSURL:                 optionalString(appCfg.Auth.JWKSURL),
		Issuer:                  optionalString(appCfg.Auth.Issuer),
		Readiness:               readinessChecks(cfg.Redis),
		Metrics:                 cfg.Metrics,
		Logger:                  logger,
	}
	if a := cfg.Auth; a != nil {
		services.Auth = a.Service
		services.IdP = httpx.Static[ports.IdPAdapter]{Value: a.IdP}
		services.SessionKey = httpx.Static[session.Key]{Value: a.SessionKey}
		services.Verifier = a.Verifier
		services.RoleSource = a.RoleSource
		if a.DevJWKSHandler != nil {
			services.DevJWKSPath = devauth.JWKSPath
			services.DevJWKSHandler = a.DevJWKSHandler
		}
	}

	return httpx.NewRouter(services)
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := config.HTTPConfig{}
	if cfg.Config != nil {
		httpCfg = cfg.Config.HTTP
	}
	httpCfg.Sanitize()

	server := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           BuildHandler(cfg),
		ReadTimeout:       httpCfg.ReadTimeout,
		ReadHeaderTimeout: httpCfg.ReadTimeout,
		WriteTimeout:      httpCfg.WriteTimeout,
		IdleTimeout:       httpCfg.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			if cfg.Errors != nil {
				cfg.Errors <- err
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}

func cookiesFromConfig(s config.SessionConfig) httpx.Cookies {
	return httpx.Cookies{
		SessionName: s.CookieName,
		CSRFName:    s.CSRFCookieName,
		Options: httpx.CookieOptions{
			HTTPOnly: true,
			Secure:   s.Secure,
			SameSite: s.SameSite.Mode(),
			Path:     s.Path,
			MaxAge:   s.MaxAge,
			Domain:   s.Domain,
		},
	}
}

func csrfFromConfig(s config.SessionConfig) httpx.CSRFConfig {
	return httpx.CSRFConfig{
		CookieName:   s.CSRFCookieName,
		HeaderName:   s.CSRFHeader,
		SkipIfBearer: s.CSRFSkipIfBearer,
	}
}

// optionalString returns a static resolver for a configured override, or nil
// so the adapter's own value is used.
//
//nolint:ireturn // nil means no override.
func optionalString(v string) httpx.Resolver[string] {
	if v == "" {
		return nil
	}
	return httpx.Static[string]{Value: v}
}

func readinessChecks(client redis.UniversalClient) map[string]httpx.ReadinessCheck {
	if client == nil {
		return nil
	}
	return map[string]httpx.ReadinessCheck{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}
