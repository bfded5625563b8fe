package config

import "time"

// JWKSConfig controls the key-set cache. Variables are read with the JWKS_ prefix.
type JWKSConfig struct {
	// TTL is how long a fetched key set is served before a refresh.
	TTL time.Duration `env:"TTL" envDefault:"15m"`
	// MinRefreshInterval rate-limits refreshes triggered by unknown key ids.
	MinRefreshInterval time.Duration `env:"MIN_REFRESH_INTERVAL" envDefault:"1m"`
	FetchTimeout       time.Duration `env:"FETCH_TIMEOUT"        envDefault:"5s"`
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration `env:"LEEWAY" envDefault:"0s"`
}

// Sanitize applies guardrails to key-set cache configuration values.
func (c *JWKSConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.MinRefreshInterval <= 0 {
		c.MinRefreshInterval = time.Minute
	}
	if c.MinRefreshInterval > c.TTL {
		c.MinRefreshInterval = c.TTL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 5 * time.Second
	}
	if c.Leeway < 0 {
		c.Leeway = 0
	}
}
