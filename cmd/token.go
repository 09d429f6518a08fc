package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satriahrh/temantidur/server/internal/auth"
	"github.com/satriahrh/temantidur/server/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token for hmac auth mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Auth.Mode != config.AuthHMAC {
				return fmt.Errorf("tokens can only be minted in %s auth mode, got %s", config.AuthHMAC, cfg.Auth.Mode)
			}

			token, err := auth.GenerateUserToken(cfg.Auth.JWTSecret, userID, ttl)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "dev-user", "user ID carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 7*24*time.Hour, "token lifetime")
	return cmd
}
