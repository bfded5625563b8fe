package bootstrap

import (
	"log/slog"

	"github.com/target/auth-bff/config"
	"github.com/target/auth-bff/internal/observability/statsd"
)

// buildMetrics returns the StatsD sink and a matching close func. Disabled
// or failing metrics yield a nil sink, which every component treats as off.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) (statsd.Sink, func()) {
	noop := func() {}
	if !cfg.IsEnabled() {
		return nil, noop
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil, noop
	}

	logger.Info("metrics enabled", "statsd_address", cfg.StatsdAddress, "prefix", cfg.Prefix)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("close statsd client", "error", err)
		}
	}
}
