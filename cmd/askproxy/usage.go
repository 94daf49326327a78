package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"askmeter-hq/askproxy/pkg/cli"
	"askmeter-hq/askproxy/pkg/ledger"
	"askmeter-hq/askproxy/pkg/ledger/export"
	"askmeter-hq/askproxy/pkg/ledger/storage"
)

var usageFlags struct {
	since   string
	until   string
	user    string
	status  string
	records bool
	limit   int
	format  string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Report usage from the ledger",
	Long: `Report per-user usage recorded in the usage ledger.

By default one row per user is printed with request, failure, token and cost
totals. With --records the individual ledger records are listed instead,
newest first.

--since and --until accept an RFC 3339 timestamp or a duration such as 24h,
which is taken relative to now.

Examples:
  # Per-user totals for the last week
  askproxy usage --since 168h

  # Export all of alice's records as CSV
  askproxy usage --records --user alice --limit 0 --format csv`,
	RunE: reportUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().StringVar(&usageFlags.since, "since", "", "only include records at or after this time")
	usageCmd.Flags().StringVar(&usageFlags.until, "until", "", "only include records before this time (records only)")
	usageCmd.Flags().StringVar(&usageFlags.user, "user", "", "only include this user (records only)")
	usageCmd.Flags().StringVar(&usageFlags.status, "status", "", "only include this status: success, upstream_error, internal_error (records only)")
	usageCmd.Flags().BoolVar(&usageFlags.records, "records", false, "list individual records instead of per-user totals")
	usageCmd.Flags().IntVar(&usageFlags.limit, "limit", 50, "maximum records to list, 0 for all")
	usageCmd.Flags().StringVar(&usageFlags.format, "format", "text", "output format: text, json, csv")
}

// usageQuery is a parsed usage command invocation.
type usageQuery struct {
	records bool
	filter  ledger.Filter
	format  cli.OutputFormat
}

func reportUsage(cmd *cobra.Command, args []string) error {
	q, err := parseUsageQuery(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return cli.NewCommandError("usage", fmt.Errorf("usage ledger is disabled (set ledger.enabled or ASKPROXY_LEDGER_ENABLED)"))
	}

	store, err := storage.New(cfg.Ledger)
	if err != nil {
		return cli.NewCommandError("usage", err)
	}
	defer store.Close()

	if err := writeUsage(cmd.Context(), cmd.OutOrStdout(), store, q); err != nil {
		return cli.NewCommandError("usage", err)
	}
	return nil
}

func parseUsageQuery(now time.Time) (usageQuery, error) {
	var q usageQuery

	format, err := cli.ParseOutputFormat(usageFlags.format)
	if err != nil {
		return q, err
	}
	q.format = format
	q.records = usageFlags.records

	if q.filter.Since, err = parseTimeFlag(usageFlags.since, now); err != nil {
		return q, fmt.Errorf("invalid --since: %w", err)
	}
	if q.filter.Until, err = parseTimeFlag(usageFlags.until, now); err != nil {
		return q, fmt.Errorf("invalid --until: %w", err)
	}

	if !q.records && (usageFlags.until != "" || usageFlags.user != "" || usageFlags.status != "") {
		return q, fmt.Errorf("--until, --user and --status require --records")
	}

	q.filter.User = usageFlags.user
	switch status := ledger.Status(usageFlags.status); status {
	case "", ledger.StatusSuccess, ledger.StatusUpstreamError, ledger.StatusInternalError:
		q.filter.Status = status
	default:
		return q, fmt.Errorf("invalid --status %q", usageFlags.status)
	}

	if usageFlags.limit < 0 {
		return q, fmt.Errorf("--limit must not be negative")
	}
	q.filter.Limit = usageFlags.limit

	return q, nil
}

// parseTimeFlag accepts an RFC 3339 timestamp or a duration before now.
// Empty means no bound.
func parseTimeFlag(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration %s is negative", value)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC 3339 time nor a duration", value)
	}
	return t, nil
}

func writeUsage(ctx context.Context, w io.Writer, store ledger.Storage, q usageQuery) error {
	if q.records {
		records, err := store.Query(ctx, q.filter)
		if err != nil {
			return err
		}
		if q.format == cli.FormatText {
			return writeRecordTable(w, records)
		}
		exp, err := export.New(string(q.format))
		if err != nil {
			return err
		}
		return exp.ExportRecords(ctx, records, w)
	}

	summaries, err := store.SummarizeByUser(ctx, q.filter.Since)
	if err != nil {
		return err
	}
	if q.format == cli.FormatText {
		return writeSummaryTable(w, summaries)
	}
	exp, err := export.New(string(q.format))
	if err != nil {
		return err
	}
	return exp.ExportSummaries(ctx, summaries, w)
}

func writeSummaryTable(w io.Writer, summaries []ledger.UserSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No usage recorded.")
		return nil
	}

	t := cli.NewTable(w, "USER", "REQUESTS", "FAILURES", "PROMPT", "COMPLETION", "TOTAL", "COST (USD)")
	var (
		requests, failures int64
		cost               float64
	)
	for _, s := range summaries {
		t.Row(s.User,
			strconv.FormatInt(s.Requests, 10),
			strconv.FormatInt(s.Failures, 10),
			strconv.FormatInt(s.PromptTokens, 10),
			strconv.FormatInt(s.CompletionTokens, 10),
			strconv.FormatInt(s.TotalTokens, 10),
			formatCost(s.TotalCost),
		)
		requests += s.Requests
		failures += s.Failures
		cost += s.TotalCost
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d users, %d requests, %d failures, %s USD\n",
		len(summaries), requests, failures, formatCost(cost))
	return nil
}

func writeRecordTable(w io.Writer, records []*ledger.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	t := cli.NewTable(w, "TIME", "USER", "STATUS", "CODE", "TOKENS", "COST (USD)", "LATENCY", "REQUEST ID")
	for _, r := range records {
		t.Row(r.CreatedAt.Format(time.RFC3339),
			r.User,
			string(r.Status),
			strconv.Itoa(r.StatusCode),
			strconv.Itoa(r.TotalTokens),
			formatCost(r.TotalCost),
			r.Latency.Round(time.Millisecond).String(),
			r.RequestID,
		)
	}
	return t.Flush()
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
