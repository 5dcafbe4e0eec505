package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinInfluence/internal/di"
	"FinInfluence/pkg/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := serveCmd(&configPath)
	root := &cobra.Command{
		Use:           "app",
		Short:         "Influence graph service for equity snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(serve)
	root.AddCommand(analyzeCmd(&configPath))
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the Kafka request consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			app.OnClose("infrastructure", func() error {
				cleanup()
				return nil
			})

			return app.Run(cmd.Context())
		},
	}
}
