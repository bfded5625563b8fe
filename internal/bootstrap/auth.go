package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/target/auth-bff/config"
	"github.com/target/auth-bff/internal/adapters/authroles"
	"github.com/target/auth-bff/internal/adapters/devauth"
	"github.com/target/auth-bff/internal/adapters/jwks"
	"github.com/target/auth-bff/internal/adapters/oidc"
	redisadapter "github.com/target/auth-bff/internal/adapters/redis"
	"github.com/target/auth-bff/internal/adapters/supabase"
	domainauth "github.com/target/auth-bff/internal/domain/auth"
	"github.com/target/auth-bff/internal/observability/statsd"
	"github.com/target/auth-bff/internal/ports"
	"github.com/target/auth-bff/internal/service"
	"github.com/target/auth-bff/internal/session"
)

// AuthDeps contains what BuildAuth needs to assemble the auth components.
type AuthDeps struct {
	Config *config.AppConfig
	// Redis is optional; nil disables login throttling.
	Redis   redis.UniversalClient
	Metrics statsd.Sink
	// HTTPClient is used for IdP and JWKS calls; nil selects adapter defaults.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AuthComponents are the wired pieces the HTTP layer serves.
type AuthComponents struct {
	IdP        ports.IdPAdapter
	SessionKey session.Key
	Keys       *jwks.Cache
	Verifier   *service.TokenVerifier
	Service    *service.AuthService
	RoleSource domainauth.RoleSource

	// DevJWKSHandler is set only for the mock provider.
	DevJWKSHandler http.Handler
}

// BuildAuth wires the configured IdP adapter, key-set cache, verifier and
// session key. The cache's background workers stop when ctx is cancelled.
func BuildAuth(ctx context.Context, deps AuthDeps) (*AuthComponents, error) {
	if deps.Config == nil {
		return nil, errors.New("auth config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idp, devJWKS, err := buildIdP(ctx, cfg, deps.HTTPClient)
	if err != nil {
		return nil, err
	}

	key, err := buildSessionKey(cfg, logger)
	if err != nil {
		return nil, err
	}

	roles, err := authroles.Sources(cfg.Auth.RoleClaimExpressions)
	if err != nil {
		return nil, fmt.Errorf("role claim expressions: %w", err)
	}

	keys, err := jwks.New(ctx, jwks.Options{
		HTTPClient:         deps.HTTPClient,
		TTL:                cfg.JWKS.TTL,
		MinRefreshInterval: cfg.JWKS.MinRefreshInterval,
		FetchTimeout:       cfg.JWKS.FetchTimeout,
		Logger:             logger,
		Metrics:            deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("jwks cache: %w", err)
	}

	verifier := service.NewTokenVerifier(service.TokenVerifierOptions{
		Keys:   keys,
		Leeway: cfg.JWKS.Leeway,
		Logger: logger,
	})

	svc := service.NewAuthService(service.AuthServiceOptions{
		Limiter: buildLoginLimiter(cfg, deps.Redis),
		Metrics: deps.Metrics,
		Logger:  logger,
	})

	logger.Info("auth configured",
		"provider", idp.Name(),
		"jwks_url", firstNonEmpty(cfg.Auth.JWKSURL, idp.JWKSURL()),
		"issuer", firstNonEmpty(cfg.Auth.Issuer, idp.Issuer()),
		"login_throttling", deps.Redis != nil,
		"role_expressions", len(cfg.Auth.RoleClaimExpressions),
	)

	return &AuthComponents{
		IdP:            idp,
		SessionKey:     key,
		Keys:           keys,
		Verifier:       verifier,
		Service:        svc,
		RoleSource:     roles,
		DevJWKSHandler: devJWKS,
	}, nil
}

// buildIdP selects the adapter for the configured provider.
//
//nolint:ireturn // the provider is chosen at runtime.
func buildIdP(ctx context.Context, cfg *config.AppConfig, hc *http.Client) (ports.IdPAdapter, http.Handler, error) {
	auth := cfg.Auth
	switch auth.Provider {
	case config.ProviderSupabase:
		a, err := supabase.New(supabase.Config{
			URL:               auth.Supabase.URL,
			APIKey:            auth.Supabase.APIKey,
			HTTPClient:        hc,
			RequestsPerSecond: auth.UpstreamRPS,
			Burst:             auth.UpstreamBurst,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("supabase adapter: %w", err)
		}
		return a, nil, nil

	case config.ProviderOIDC:
		a, err := oidc.New(ctx, oidc.Config{
			ClientID:          auth.OIDC.ClientID,
			ClientSecret:      auth.OIDC.ClientSecret,
			Scope:             auth.OIDC.Scope,
			DiscoveryURL:      auth.OIDC.DiscoveryURL,
			HTTPClient:        hc,
			RequestsPerSecond: auth.UpstreamRPS,
			Burst:             auth.UpstreamBurst,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("oidc adapter: %w", err)
		}
		return a, nil, nil

	case config.ProviderMock:
		a, err := devauth.New(devauth.Config{
			BaseURL:  cfg.HTTP.BaseURL,
			UserID:   auth.DevAuth.UserID,
			Email:    auth.DevAuth.Email,
			Password: auth.DevAuth.Password,
			Roles:    auth.DevAuth.Roles,
			TokenTTL: auth.DevAuth.TokenTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dev auth adapter: %w", err)
		}
		return a, a.JWKSHandler(), nil

	default:
		return nil, nil, fmt.Errorf("unknown auth provider %q", auth.Provider)
	}
}

// buildSessionKey parses SESSION_SECRET. The mock provider may run without
// one, in which case sessions do not survive a restart.
func buildSessionKey(cfg *config.AppConfig, logger *slog.Logger) (session.Key, error) {
	if cfg.Session.Secret != "" {
		key, err := session.ParseKey(cfg.Session.Secret)
		if err != nil {
			return session.Key{}, fmt.Errorf("session secret: %w", err)
		}
		return key, nil
	}
	if cfg.Auth.Provider != config.ProviderMock {
		return session.Key{}, errors.New("session secret is required")
	}

	key, err := session.GenerateKey()
	if err != nil {
		return session.Key{}, fmt.Errorf("generate session key: %w", err)
	}
	logger.Warn("SESSION_SECRET not set; using an ephemeral session key")
	return key, nil
}

// buildLoginLimiter returns nil (throttling disabled) without Redis or when
// the failure limit is zero.
//
//nolint:ireturn // nil disables throttling.
func buildLoginLimiter(cfg *config.AppConfig, client redis.UniversalClient) ports.LoginLimiter {
	if client == nil || cfg.Auth.LoginMaxFailures <= 0 {
		return nil
	}
	return redisadapter.NewLoginLimiter(client, redisadapter.LoginLimiterOptions{
		Prefix:      cfg.Redis.KeyPrefix + "login_failures:",
		MaxFailures: cfg.Auth.LoginMaxFailures,
		Window:      cfg.Auth.LoginWindow,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
