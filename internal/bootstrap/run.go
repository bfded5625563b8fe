package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/target/auth-bff/config"
)

// Run wires the gateway and serves until ctx is cancelled, a shutdown signal
// arrives, or the listener fails.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics, closeMetrics := buildMetrics(logger, cfg.Observability.Metrics)
	defer closeMetrics()

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		client, err := ConnectRedis(runCtx, RedisOptions{Config: cfg.Redis, Logger: logger})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis client", "error", err)
			}
		}()
	} else {
		logger.Info("redis not configured; login throttling disabled")
	}

	authComponents, err := BuildAuth(runCtx, AuthDeps{
		Config:  cfg,
		Redis:   redisClient,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build auth: %w", err)
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(HTTPServerConfig{
		Config:  cfg,
		Auth:    authComponents,
		Redis:   redisClient,
		Metrics: metrics,
		Logger:  logger,
		Errors:  errCh,
	})

	serveErr := waitForShutdown(runCtx, errCh, logger)
	cancel()

	// The run context is already cancelled; shutdown gets its own deadline.
	if err := ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  server,
		Timeout: cfg.HTTP.ShutdownTimeout,
		Logger:  logger,
	}); err != nil {
		return errors.Join(serveErr, fmt.Errorf("shutdown http server: %w", err))
	}
	return serveErr
}

// waitForShutdown blocks until a signal, a listener error or cancellation.
func waitForShutdown(ctx context.Context, errCh <-chan error, logger *slog.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		return nil
	case err := <-errCh:
		logger.Error("service error", "error", err)
		return err
	case <-ctx.Done():
		return nil
	}
}
