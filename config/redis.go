package config

import "strings"

// RedisConfig contains Redis configuration. Variables are read with the REDIS_ prefix.
// Redis is optional; leaving URI empty (and neither sentinel nor cluster
// enabled) disables login throttling.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:""`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	KeyPrefix          string   `env:"KEY_PREFIX"           envDefault:"authbff:"`
}

// Sanitize trims connection settings.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	c.SentinelNodes = compact(c.SentinelNodes)
	c.ClusterNodes = compact(c.ClusterNodes)
}

// Enabled reports whether any Redis topology is configured.
func (c *RedisConfig) Enabled() bool {
	return c.URI != "" || c.UseSentinel || c.UseCluster
}
