package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/target/auth-bff/internal/bootstrap"
	"github.com/target/auth-bff/internal/session"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "authbff",
		Short:             "Backend-for-frontend authentication gateway",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Long: `authbff exchanges browser credentials with an identity provider and keeps
the resulting tokens in an encrypted, httpOnly session cookie. API routes accept
either that cookie or a bearer token.`,
	}
	root.AddCommand(newServeCmd(), newKeygenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			logger := bootstrap.InitLogger(cfg.IsDev)
			logger.InfoContext(cmd.Context(), "starting auth gateway",
				"provider", cfg.Auth.Provider,
				"addr", cfg.HTTP.Addr,
				"dev", cfg.IsDev,
			)
			return bootstrap.Run(cmd.Context(), &cfg, logger)
		},
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a random session key suitable for SESSION_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := session.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key.Hex())
			return err
		},
	}
}
