package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 1048576 // 1MB
	DefaultCORSMaxAge      = 300

	// Upstream defaults
	DefaultAPIVersion      = "2024-12-01-preview"
	DefaultMaxTokens       = 500
	DefaultUpstreamTimeout = 60 * time.Second

	// Pricing defaults (USD per 1K tokens)
	DefaultPromptPer1K     = 0.0015
	DefaultCompletionPer1K = 0.002

	// Ledger defaults
	DefaultLedgerBackend       = "sqlite"
	DefaultLedgerSQLitePath    = "data/usage.db"
	DefaultLedgerBusyTimeout   = 5 * time.Second
	DefaultLedgerAsyncBuffer   = 1000
	DefaultLedgerWriteTimeout  = 5 * time.Second
	DefaultLedgerRetentionDays = 30
	DefaultLedgerPruneSchedule = "0 3 * * *"
	DefaultPostgresPort        = 5432
	DefaultPostgresSSLMode     = "require"
	DefaultPostgresMaxConns    = 10

	// Users defaults
	DefaultUser           = "anonymous"
	DefaultMaxLabelValues = 1000
	DefaultOtherLabel     = "other"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "openai"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingService     = "askproxy"
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultRequestLatencyBuckets are the request latency histogram buckets in seconds.
var DefaultRequestLatencyBuckets = []float64{0.5, 1, 2, 3, 5, 10}

// DefaultResponseLatencyBuckets are the reserved response latency histogram buckets in seconds.
var DefaultResponseLatencyBuckets = []float64{0.1, 0.5, 1, 2, 5, 10}

// newSeededConfig returns a Config whose boolean fields that default to true
// are already set, so that YAML decoding only overrides what the file names.
func newSeededConfig() *Config {
	cfg := &Config{}
	cfg.Ledger.SQLite.WALMode = true
	cfg.Telemetry.Logging.RedactSecrets = true
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	if cfg.Upstream.APIVersion == "" {
		cfg.Upstream.APIVersion = DefaultAPIVersion
	}
	if cfg.Upstream.MaxTokens == 0 {
		cfg.Upstream.MaxTokens = DefaultMaxTokens
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}

	if cfg.Pricing.PromptPer1K == 0 {
		cfg.Pricing.PromptPer1K = DefaultPromptPer1K
	}
	if cfg.Pricing.CompletionPer1K == 0 {
		cfg.Pricing.CompletionPer1K = DefaultCompletionPer1K
	}

	applyLedgerDefaults(&cfg.Ledger)

	if cfg.Users.Default == "" {
		cfg.Users.Default = DefaultUser
	}
	if cfg.Users.MaxLabelValues == 0 {
		cfg.Users.MaxLabelValues = DefaultMaxLabelValues
	}
	if cfg.Users.OtherLabel == "" {
		cfg.Users.OtherLabel = DefaultOtherLabel
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if len(s.CORS.AllowedOrigins) == 0 {
		s.CORS.AllowedOrigins = []string{"*"}
	}
	if len(s.CORS.AllowedMethods) == 0 {
		s.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(s.CORS.AllowedHeaders) == 0 {
		s.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if s.CORS.MaxAge == 0 {
		s.CORS.MaxAge = DefaultCORSMaxAge
	}
}

func applyLedgerDefaults(l *LedgerConfig) {
	if l.Backend == "" {
		l.Backend = DefaultLedgerBackend
	}
	if l.SQLite.Path == "" {
		l.SQLite.Path = DefaultLedgerSQLitePath
	}
	if l.SQLite.BusyTimeout == 0 {
		l.SQLite.BusyTimeout = DefaultLedgerBusyTimeout
	}
	if l.Postgres.Port == 0 {
		l.Postgres.Port = DefaultPostgresPort
	}
	if l.Postgres.SSLMode == "" {
		l.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if l.Postgres.MaxOpenConns == 0 {
		l.Postgres.MaxOpenConns = DefaultPostgresMaxConns
	}
	if l.AsyncBuffer == 0 {
		l.AsyncBuffer = DefaultLedgerAsyncBuffer
	}
	if l.WriteTimeout == 0 {
		l.WriteTimeout = DefaultLedgerWriteTimeout
	}
	if l.Retention.Days == 0 {
		l.Retention.Days = DefaultLedgerRetentionDays
	}
	if l.Retention.Schedule == "" {
		l.Retention.Schedule = DefaultLedgerPruneSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.RequestLatencyBuckets) == 0 {
		t.Metrics.RequestLatencyBuckets = append([]float64(nil), DefaultRequestLatencyBuckets...)
	}
	if len(t.Metrics.ResponseLatencyBuckets) == 0 {
		t.Metrics.ResponseLatencyBuckets = append([]float64(nil), DefaultResponseLatencyBuckets...)
	}

	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
}

// MinimalConfig returns a configuration with defaults applied and the three
// required upstream fields filled with placeholder values. It is intended for
// tests and for the validate command's dry-run output.
func MinimalConfig() *Config {
	cfg := newSeededConfig()
	cfg.Upstream = UpstreamConfig{
		Endpoint:   "https://example.openai.azure.com",
		APIKey:     "test-key",
		Deployment: "gpt-4o-mini",
	}
	ApplyDefaults(cfg)
	return cfg
}
