package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/auth-bff/config"
	"github.com/target/auth-bff/internal/session"
)

// InitLogger initializes the structured logger. Dev mode logs at debug level.
func InitLogger(isDev bool) *slog.Logger {
	level := slog.LevelInfo
	if isDev {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig rejects configurations the gateway cannot serve with.
// All problems are reported together.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	var errs []error
	auth := cfg.Auth
	switch auth.Provider {
	case config.ProviderSupabase:
		if auth.Supabase.URL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the supabase provider"))
		}
		if auth.Supabase.APIKey == "" {
			errs = append(errs, errors.New("SUPABASE_API_KEY is required for the supabase provider"))
		}
	case config.ProviderOIDC:
		if auth.OIDC.DiscoveryURL == "" {
			errs = append(errs, errors.New("OIDC_DISCOVERY_URL is required for the oidc provider"))
		}
		if auth.OIDC.ClientID == "" {
			errs = append(errs, errors.New("OIDC_CLIENT_ID is required for the oidc provider"))
		}
	case config.ProviderMock:
		if cfg.HTTP.BaseURL == "" {
			errs = append(errs, errors.New("APP_BASE_URL is required for the mock provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth provider %q", auth.Provider))
	}

	switch {
	case cfg.Session.Secret != "":
		if _, err := session.ParseKey(cfg.Session.Secret); err != nil {
			errs = append(errs, fmt.Errorf("SESSION_SECRET: %w", err))
		}
	case auth.Provider != config.ProviderMock:
		errs = append(errs, errors.New("SESSION_SECRET is required unless AUTH_PROVIDER=mock"))
	}

	return errors.Join(errs...)
}
