package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/babetranslator-backend/internal/app"
	"github.com/yungbote/babetranslator-backend/internal/platform/shutdown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "babetranslator",
	Short: "Babe Translator API server",
	Long: `babetranslator serves the messaging-assistant API: it keeps per-user
conversations, reads screenshot text, and suggests replies tuned to the
user's personality type within a daily quota.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration as YAML (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg.Redacted())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), app.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides BT_CONFIG_PATH)")
	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
