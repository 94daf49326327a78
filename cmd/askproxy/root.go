package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"askmeter-hq/askproxy/pkg/cli"
	"askmeter-hq/askproxy/pkg/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "askproxy",
	Short: "askproxy - metering proxy for a hosted chat-completion deployment",
	Long: `askproxy forwards questions to a single hosted chat-completion deployment
and meters every call.

For each request it:
  - Returns the answer with token usage, latency and estimated cost
  - Updates Prometheus counters, including per-user request and cost series
  - Optionally writes a usage record to a SQLite or PostgreSQL ledger

Configuration comes from an optional YAML file and the environment. The
upstream endpoint, API key and deployment name are required.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (environment only when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
}

// loadConfig loads and validates the configuration named by the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}
