package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"askmeter-hq/askproxy/pkg/cli"
	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the askproxy server",
	Long: `Start the askproxy server with the specified configuration.

The server listens on the configured address, forwards POST /ask questions to
the upstream deployment, and exposes Prometheus metrics, health probes and
usage reports.

Examples:
  # Start with environment configuration only
  askproxy run

  # Start with a config file
  askproxy run --config /etc/askproxy/askproxy.yaml

  # Override listen address
  askproxy run --listen 0.0.0.0:8000

  # Validate config without starting server
  askproxy run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyRunOverrides(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stdout))
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	logger.SetDefault()

	printBanner(out, cfg)

	a, err := newApp(cfg, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start(gctx)
	})

	g.Go(func() error {
		// A broken allowlist watcher leaves the last loaded list in effect.
		if err := a.policy.Watch(gctx); err != nil {
			logger.Warn("allowlist watcher stopped", "error", err)
		}
		return nil
	})

	if a.pruner != nil && cfg.Ledger.Retention.Schedule != "" {
		if err := a.pruner.Start(gctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else if next := a.pruner.NextPruning(); next != nil {
			logger.Debug("ledger retention scheduler started", "next_pruning", next)
		}
	}

	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "✓ Ask endpoint: POST http://%s/ask\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	runErr := g.Wait()

	a.logTotals()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.close(closeCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}

	if runErr != nil {
		return cli.NewCommandError("run", runErr)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// applyRunOverrides applies flag overrides and re-validates the result.
func applyRunOverrides(cfg *config.Config) error {
	changed := false
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
		changed = true
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
		changed = true
	}
	if !changed {
		return nil
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "askproxy v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(w, "✓ Configuration loaded")
	fmt.Fprintf(w, "✓ Upstream deployment: %s\n", cfg.Upstream.Deployment)
	fmt.Fprintf(w, "✓ Upstream timeout: %s\n", cfg.Upstream.Timeout.Round(time.Millisecond))
	if cfg.Ledger.Enabled {
		fmt.Fprintf(w, "✓ Usage ledger: %s\n", cfg.Ledger.Backend)
	} else {
		fmt.Fprintln(w, "✓ Usage ledger: disabled")
	}
	if cfg.Telemetry.Tracing.Enabled {
		fmt.Fprintf(w, "✓ Tracing: %s\n", cfg.Telemetry.Tracing.Endpoint)
	}
}
