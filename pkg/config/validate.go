package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "upstream.endpoint").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether any error refers to field.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// validLedgerBackends lists the accepted ledger.backend values.
var validLedgerBackends = map[string]bool{
	"memory":   true,
	"sqlite":   true,
	"sqlite3":  true,
	"postgres": true,
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validatePricing(&cfg.Pricing)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateUsers(&cfg.Users)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}
	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.endpoint",
			Message: fmt.Sprintf("endpoint is required (set %s)", EnvUpstreamEndpoint),
		})
	} else if u, err := url.Parse(cfg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{Field: "upstream.endpoint", Message: "endpoint must be an absolute URL"})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{Field: "upstream.endpoint", Message: "endpoint scheme must be http or https"})
	}

	if cfg.APIKey == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.api_key",
			Message: fmt.Sprintf("api key is required (set %s)", EnvUpstreamAPIKey),
		})
	}
	if cfg.Deployment == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.deployment",
			Message: fmt.Sprintf("deployment name is required (set %s)", EnvUpstreamDeployment),
		})
	}
	if cfg.APIVersion == "" {
		errs = append(errs, FieldError{Field: "upstream.api_version", Message: "api version is required"})
	}
	if cfg.MaxTokens <= 0 {
		errs = append(errs, FieldError{Field: "upstream.max_tokens", Message: "max tokens must be positive"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "upstream.timeout", Message: "timeout must be positive"})
	}
	return errs
}

func validatePricing(cfg *PricingConfig) []FieldError {
	var errs []FieldError
	if cfg.PromptPer1K < 0 {
		errs = append(errs, FieldError{Field: "pricing.prompt_per_1k", Message: "rate must be non-negative"})
	}
	if cfg.CompletionPer1K < 0 {
		errs = append(errs, FieldError{Field: "pricing.completion_per_1k", Message: "rate must be non-negative"})
	}
	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError

	if !validLedgerBackends[cfg.Backend] {
		names := make([]string, 0, len(validLedgerBackends))
		for name := range validLedgerBackends {
			names = append(names, name)
		}
		sort.Strings(names)
		errs = append(errs, FieldError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("unsupported backend %q (valid: %s)", cfg.Backend, strings.Join(names, ", ")),
		})
	}

	switch cfg.Backend {
	case "sqlite", "sqlite3":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "ledger.sqlite.path", Message: "path is required"})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" && (cfg.Postgres.Host == "" || cfg.Postgres.Database == "") {
			errs = append(errs, FieldError{Field: "ledger.postgres", Message: "dsn or host and database are required"})
		}
		if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{Field: "ledger.postgres.port", Message: "port must be between 1 and 65535"})
		}
	}

	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "ledger.async_buffer", Message: "async buffer must be non-negative"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "ledger.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "ledger.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

func validateUsers(cfg *UsersConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxLabelValues < 0 {
		errs = append(errs, FieldError{Field: "users.max_label_values", Message: "max label values must be non-negative"})
	}
	if cfg.OtherLabel == "" {
		errs = append(errs, FieldError{Field: "users.other_label", Message: "other label is required"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (valid: json, text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}
	if err := checkBuckets(cfg.Metrics.RequestLatencyBuckets); err != "" {
		errs = append(errs, FieldError{Field: "telemetry.metrics.request_latency_buckets", Message: err})
	}
	if err := checkBuckets(cfg.Metrics.ResponseLatencyBuckets); err != "" {
		errs = append(errs, FieldError{Field: "telemetry.metrics.response_latency_buckets", Message: err})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}
	return errs
}

// checkBuckets returns a message if buckets are not strictly increasing.
func checkBuckets(buckets []float64) string {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return "buckets must be strictly increasing"
		}
	}
	return ""
}
