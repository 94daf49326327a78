package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"askmeter-hq/askproxy/pkg/cli"
	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/telemetry/logging"
	"askmeter-hq/askproxy/pkg/upstream"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration the same way "run" does and print the effective
settings. Secrets are redacted.

A missing upstream endpoint, API key or deployment name fails validation.

Examples:
  # Validate environment configuration
  askproxy validate

  # Validate a file and print JSON
  askproxy validate --config askproxy.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("validate does not support csv output")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return writeConfigSummary(cmd.OutOrStdout(), cfg, format)
}

// configSummary is the redacted view of a configuration printed by validate.
type configSummary struct {
	UpstreamURL     string  `json:"upstream_url"`
	APIKey          string  `json:"api_key"`
	UpstreamTimeout string  `json:"upstream_timeout"`
	MaxTokens       int     `json:"max_tokens"`
	ListenAddress   string  `json:"listen_address"`
	PromptPer1K     float64 `json:"prompt_per_1k"`
	CompletionPer1K float64 `json:"completion_per_1k"`
	Ledger          string  `json:"ledger"`
	RetentionDays   int     `json:"retention_days"`
	DefaultUser     string  `json:"default_user"`
	UserLabels      string  `json:"user_labels"`
	MetricsPath     string  `json:"metrics_path"`
	Namespace       string  `json:"metrics_namespace"`
	Tracing         string  `json:"tracing"`
	LogLevel        string  `json:"log_level"`
}

func summarize(cfg *config.Config) configSummary {
	s := configSummary{
		UpstreamURL:     upstream.BuildURL(cfg.Upstream.Endpoint, cfg.Upstream.Deployment, cfg.Upstream.APIVersion),
		APIKey:          logging.RedactAPIKey(cfg.Upstream.APIKey),
		UpstreamTimeout: cfg.Upstream.Timeout.String(),
		MaxTokens:       cfg.Upstream.MaxTokens,
		ListenAddress:   cfg.Server.ListenAddress,
		PromptPer1K:     cfg.Pricing.PromptPer1K,
		CompletionPer1K: cfg.Pricing.CompletionPer1K,
		Ledger:          "disabled",
		DefaultUser:     cfg.Users.Default,
		MetricsPath:     cfg.Telemetry.Metrics.Path,
		Namespace:       cfg.Telemetry.Metrics.Namespace,
		Tracing:         "disabled",
		LogLevel:        cfg.Telemetry.Logging.Level,
	}

	if cfg.Ledger.Enabled {
		s.Ledger = cfg.Ledger.Backend
		s.RetentionDays = cfg.Ledger.Retention.Days
	}

	switch {
	case cfg.Users.AllowlistPath != "":
		s.UserLabels = "allowlist " + cfg.Users.AllowlistPath
	case cfg.Users.MaxLabelValues > 0:
		s.UserLabels = "first " + strconv.Itoa(cfg.Users.MaxLabelValues) + " users"
	default:
		s.UserLabels = "unbounded"
	}

	if cfg.Telemetry.Tracing.Enabled {
		s.Tracing = cfg.Telemetry.Tracing.Endpoint
	}
	return s
}

func writeConfigSummary(w io.Writer, cfg *config.Config, format cli.OutputFormat) error {
	s := summarize(cfg)
	if format == cli.FormatJSON {
		return cli.WriteJSON(w, s)
	}

	fmt.Fprintln(w, "✓ Configuration valid")
	fmt.Fprintln(w)

	t := cli.NewTable(w, "SETTING", "VALUE")
	t.Row("upstream url", s.UpstreamURL)
	t.Row("api key", s.APIKey)
	t.Row("upstream timeout", s.UpstreamTimeout)
	t.Row("max tokens", strconv.Itoa(s.MaxTokens))
	t.Row("listen address", s.ListenAddress)
	t.Row("pricing", fmt.Sprintf("prompt %g / completion %g per 1K tokens", s.PromptPer1K, s.CompletionPer1K))
	t.Row("ledger", s.Ledger)
	if s.Ledger != "disabled" {
		t.Row("retention", retentionText(s.RetentionDays))
	}
	t.Row("default user", s.DefaultUser)
	t.Row("user labels", s.UserLabels)
	t.Row("metrics", s.MetricsPath+" ("+s.Namespace+"_*)")
	t.Row("tracing", s.Tracing)
	t.Row("log level", s.LogLevel)
	return t.Flush()
}

func retentionText(days int) string {
	if days <= 0 {
		return "forever"
	}
	return strconv.Itoa(days) + " days"
}
