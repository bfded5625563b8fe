package config

import (
	"fmt"
	"strings"
	"time"
)

// ProviderKind selects the identity provider adapter.
type ProviderKind string

const (
	// ProviderSupabase talks to the Supabase Auth REST API.
	ProviderSupabase ProviderKind = "supabase"
	// ProviderOIDC uses OIDC discovery and the password grant.
	ProviderOIDC ProviderKind = "oidc"
	// ProviderMock uses the in-process dev provider (for development only).
	ProviderMock ProviderKind = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProviderKind.
func (p *ProviderKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "supabase", "oidc", "mock":
		*p = ProviderKind(v)
		return nil
	default:
		return fmt.Errorf("invalid ProviderKind: %q (valid options: supabase, oidc, mock)", v)
	}
}

// SupabaseConfig contains Supabase project settings.
type SupabaseConfig struct {
	URL    string `env:"URL"`
	APIKey string `env:"API_KEY"`
}

// OIDCConfig contains OAuth/OIDC client settings.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls the mock identity.
// Used when AUTH_PROVIDER=mock for development and testing.
type DevAuthConfig struct {
	UserID   string        `env:"USER_ID"   envDefault:"dev-user"`
	Email    string        `env:"EMAIL"     envDefault:"dev@example.com"`
	Password string        `env:"PASSWORD"  envDefault:"password"`
	Roles    []string      `env:"ROLES"     envDefault:"admin"           envSeparator:";"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

// AuthConfig groups identity provider and authorization configuration.
type AuthConfig struct {
	// Provider determines which identity provider adapter to use.
	Provider ProviderKind `env:"AUTH_PROVIDER" envDefault:"supabase"`

	Supabase SupabaseConfig `envPrefix:"SUPABASE_"`
	OIDC     OIDCConfig     `envPrefix:"OIDC_"`
	DevAuth  DevAuthConfig  `envPrefix:"DEV_AUTH_"`

	// JWKSURL and Issuer override the values advertised by the adapter.
	JWKSURL string `env:"AUTH_JWKS_URL"`
	Issuer  string `env:"AUTH_ISSUER"`

	// RoleClaimExpressions are JMESPath expressions evaluated against token
	// claims in addition to the built-in role conventions.
	RoleClaimExpressions []string `env:"AUTH_ROLE_CLAIM_EXPRESSIONS" envSeparator:";"`

	// RequiredRoles guards /api routes; any one role grants access. Empty means
	// any verified caller is allowed.
	RequiredRoles []string `env:"AUTH_REQUIRED_ROLES" envSeparator:","`

	// Outbound call limits towards the identity provider; zero disables.
	UpstreamRPS   float64 `env:"AUTH_UPSTREAM_RPS"   envDefault:"0"`
	UpstreamBurst int     `env:"AUTH_UPSTREAM_BURST" envDefault:"10"`

	// Failed-login throttling; only active when Redis is configured.
	LoginMaxFailures int           `env:"AUTH_LOGIN_MAX_FAILURES" envDefault:"5"`
	LoginWindow      time.Duration `env:"AUTH_LOGIN_WINDOW"       envDefault:"15m"`
}

// Sanitize trims provider settings and clamps limits.
func (c *AuthConfig) Sanitize() {
	c.Supabase.URL = strings.TrimRight(strings.TrimSpace(c.Supabase.URL), "/")
	c.Supabase.APIKey = strings.TrimSpace(c.Supabase.APIKey)
	c.OIDC.DiscoveryURL = strings.TrimSpace(c.OIDC.DiscoveryURL)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.Issuer = strings.TrimSpace(c.Issuer)
	c.RoleClaimExpressions = compact(c.RoleClaimExpressions)
	c.RequiredRoles = compact(c.RequiredRoles)

	if c.UpstreamRPS < 0 {
		c.UpstreamRPS = 0
	}
	if c.UpstreamBurst < 1 {
		c.UpstreamBurst = 1
	}
	if c.LoginMaxFailures < 0 {
		c.LoginMaxFailures = 0
	}
	if c.LoginWindow <= 0 {
		c.LoginWindow = 15 * time.Minute
	}
}

// compact trims entries and drops empty ones.
func compact(vals []string) []string {
	out := vals[:0]
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
