package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"askmeter-hq/askproxy/pkg/cli"
	"askmeter-hq/askproxy/pkg/ledger"
	"askmeter-hq/askproxy/pkg/ledger/retention"
	"askmeter-hq/askproxy/pkg/ledger/storage"
)

var pruneFlags struct {
	days   int
	dryRun bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete ledger records older than the retention period",
	Long: `Run one retention pass over the usage ledger, outside the server's
schedule.

Examples:
  # Apply the configured retention period
  askproxy prune

  # Keep only the last 7 days and report what would be removed
  askproxy prune --days 7 --dry-run`,
	RunE: pruneLedger,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", -1, "override retention days (0 keeps everything)")
	pruneCmd.Flags().BoolVar(&pruneFlags.dryRun, "dry-run", false, "count matching records without deleting them")
}

func pruneLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return cli.NewCommandError("prune", fmt.Errorf("usage ledger is disabled"))
	}

	retentionCfg := retention.FromRetentionConfig(cfg.Ledger.Retention)
	if pruneFlags.days >= 0 {
		retentionCfg.RetentionDays = pruneFlags.days
	}

	store, err := storage.New(cfg.Ledger)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	defer store.Close()

	pruner := retention.NewPruner(store, retentionCfg)
	out := cmd.OutOrStdout()

	cutoff, ok := pruner.Cutoff()
	if !ok {
		fmt.Fprintln(out, "Retention is unlimited, nothing to prune.")
		return nil
	}

	if pruneFlags.dryRun {
		records, err := store.Query(cmd.Context(), ledger.Filter{Until: cutoff})
		if err != nil {
			return cli.NewCommandError("prune", err)
		}
		fmt.Fprintf(out, "%d records older than %s would be deleted\n", len(records), cutoff.Format(time.RFC3339))
		return nil
	}

	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	fmt.Fprintf(out, "✓ Deleted %d records older than %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}
