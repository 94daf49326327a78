package config

import "time"

// Config is the root configuration structure for askproxy.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Upstream identifies the single chat-completion deployment requests are
	// forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Pricing contains the per-1K-token rates used to estimate request cost.
	Pricing PricingConfig `yaml:"pricing"`

	// Ledger contains configuration for the durable usage ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Users controls how user identifiers become metric label values.
	Users UsersConfig `yaml:"users"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Default: "127.0.0.1:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed the upstream timeout or slow answers are cut off.
	// Default: 90s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the /ask request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 300
	MaxAge int `yaml:"max_age"`
}

// UpstreamConfig identifies the hosted completion deployment.
// Endpoint, APIKey and Deployment are required; a missing value is a fatal
// startup error.
type UpstreamConfig struct {
	// Endpoint is the resource base URL, e.g. "https://myres.openai.azure.com".
	// Env: AZURE_OPENAI_ENDPOINT
	Endpoint string `yaml:"endpoint"`

	// APIKey is sent in the "api-key" header.
	// Env: AZURE_OPENAI_API_KEY
	APIKey string `yaml:"api_key"`

	// Deployment is the deployment name placed in the request path.
	// Env: AZURE_OPENAI_DEPLOYMENT_NAME
	Deployment string `yaml:"deployment"`

	// APIVersion is the pinned api-version query parameter.
	// Default: "2024-12-01-preview"
	APIVersion string `yaml:"api_version"`

	// MaxTokens caps the completion length.
	// Default: 500
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds a single upstream call end to end.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// PricingConfig contains token pricing in USD per 1000 tokens.
type PricingConfig struct {
	// PromptPer1K is the cost of 1000 prompt tokens.
	// Default: 0.0015
	PromptPer1K float64 `yaml:"prompt_per_1k"`

	// CompletionPer1K is the cost of 1000 completion tokens.
	// Default: 0.002
	CompletionPer1K float64 `yaml:"completion_per_1k"`
}

// LedgerConfig contains configuration for the usage ledger.
type LedgerConfig struct {
	// Enabled controls whether per-request usage records are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite" (pure Go), "sqlite3" (cgo), "postgres"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains settings shared by the "sqlite" and "sqlite3" backends.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains settings for the "postgres" backend.
	Postgres PostgresConfig `yaml:"postgres"`

	// AsyncBuffer is the size of the recorder's write queue.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention controls pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite connection settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	// DSN is a lib/pq connection string. When set it wins over the
	// individual fields.
	DSN string `yaml:"dsn"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSLMode is passed through as sslmode.
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxOpenConns limits the pool size.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`
}

// RetentionConfig controls ledger pruning.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps records forever.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is a standard cron expression for the pruning job.
	// Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// UsersConfig controls per-user label cardinality.
type UsersConfig struct {
	// Default is the user recorded when a request names none.
	// Default: "anonymous"
	Default string `yaml:"default"`

	// AllowlistPath is an optional file listing known users, one per line.
	// When set, users not on the list are recorded under OtherLabel.
	// The file is watched and reloaded on change.
	AllowlistPath string `yaml:"allowlist_path"`

	// MaxLabelValues caps distinct user label values when no allowlist is
	// configured. 0 disables the cap.
	// Default: 1000
	MaxLabelValues int `yaml:"max_label_values"`

	// OtherLabel is the label value used for users that are not admitted.
	// Default: "other"
	OtherLabel string `yaml:"other_label"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys and bearer tokens in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "openai"
	Namespace string `yaml:"namespace"`

	// RequestLatencyBuckets are the request latency histogram buckets (seconds).
	// Default: [0.5, 1, 2, 3, 5, 10]
	RequestLatencyBuckets []float64 `yaml:"request_latency_buckets"`

	// ResponseLatencyBuckets are the reserved response latency histogram buckets (seconds).
	// Default: [0.1, 0.5, 1, 2, 5, 10]
	ResponseLatencyBuckets []float64 `yaml:"response_latency_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled turns on span export. When false a noop tracer is used.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled (0.0 - 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "askproxy"
	ServiceName string `yaml:"service_name"`

	// Timeout bounds exporter calls.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
