package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/auth"

	"github.com/spf13/cobra"
)

// buildRootCmd отдельно от main, чтобы дерево команд можно было тестировать.
func buildRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "chat-service",
		Short:         "Realtime chat delivery and presence service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML config (default: $CONFIG_PATH or ./config/config.yaml)")

	root.AddCommand(
		buildServeCmd(&configPath),
		buildMigrateCmd(&configPath),
		buildTokenCmd(&configPath),
	)
	return root
}

func buildServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP, websocket and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func buildMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}
}

func buildTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		Example: `  chat-service token --user u-42
  chat-service token --user u-42 --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			signer := auth.NewSigner(cfg.Auth.Secret, cfg.Auth.Issuer, ttl, cfg.Auth.ClockSkew)
			token, err := signer.Issue(userID)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: auth.tokenTTL)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return config.LoadConfig()
	}
	return config.LoadFile(path)
}
