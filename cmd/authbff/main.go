// Package main is the entry point for the auth gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/auth-bff/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger(false)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}
