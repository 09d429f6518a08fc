package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/internal/config"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "temantidur",
		Short: "Teman Tidur companion server",
		// Running without a subcommand starts the server
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to temantidur.yaml")

	rootCmd.AddCommand(newServeCmd(), newTokenCmd(), newSpeakCmd(), newTalkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the logger it asks for
func loadConfig() (*config.Config, *zap.Logger, error) {
	bootstrap, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer bootstrap.Sync()

	cfg, err := config.Load(configFile, bootstrap)
	if err != nil {
		return nil, nil, err
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
