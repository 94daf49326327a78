package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names for the upstream deployment. These keep the
// names operators already export for the Azure OpenAI SDKs.
const (
	EnvUpstreamEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvUpstreamAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvUpstreamDeployment = "AZURE_OPENAI_DEPLOYMENT_NAME"
)

// EnvPrefix is the prefix for all other environment variable overrides.
const EnvPrefix = "ASKPROXY_"

// Load builds the process configuration.
//
// The loading sequence is:
//  1. Load .env files (missing files are ignored)
//  2. Parse YAML from path, if path is non-empty
//  3. Apply default values
//  4. Apply environment variable overrides
//  5. Validate the final configuration
//
// A missing upstream endpoint, API key, or deployment name is reported as a
// validation error; callers treat any error here as fatal.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := newSeededConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults without consulting
// the environment. The result is not validated.
func Parse(data []byte) (*Config, error) {
	cfg := newSeededConfig()
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return err
	}
	return nil
}

// loadEnvFiles loads .env style files into the process environment. Values
// already present in the environment are not overwritten. When no files are
// given, ".env" in the working directory is tried.
func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %q: %w", f, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Upstream identity uses the AZURE_OPENAI_* names; everything else uses
// ASKPROXY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvUpstreamEndpoint); val != "" {
		cfg.Upstream.Endpoint = val
	}
	if val := os.Getenv(EnvUpstreamAPIKey); val != "" {
		cfg.Upstream.APIKey = val
	}
	if val := os.Getenv(EnvUpstreamDeployment); val != "" {
		cfg.Upstream.Deployment = val
	}
	if val := getenv("UPSTREAM_API_VERSION"); val != "" {
		cfg.Upstream.APIVersion = val
	}
	setDuration(&cfg.Upstream.Timeout, "UPSTREAM_TIMEOUT")
	setInt(&cfg.Upstream.MaxTokens, "UPSTREAM_MAX_TOKENS")

	if val := getenv("SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	setDuration(&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setBool(&cfg.Server.CORS.Enabled, "SERVER_CORS_ENABLED")

	setFloat(&cfg.Pricing.PromptPer1K, "PRICING_PROMPT_PER_1K")
	setFloat(&cfg.Pricing.CompletionPer1K, "PRICING_COMPLETION_PER_1K")

	setBool(&cfg.Ledger.Enabled, "LEDGER_ENABLED")
	if val := getenv("LEDGER_BACKEND"); val != "" {
		cfg.Ledger.Backend = val
	}
	if val := getenv("LEDGER_SQLITE_PATH"); val != "" {
		cfg.Ledger.SQLite.Path = val
	}
	if val := getenv("LEDGER_POSTGRES_DSN"); val != "" {
		cfg.Ledger.Postgres.DSN = val
	}
	setInt(&cfg.Ledger.Retention.Days, "LEDGER_RETENTION_DAYS")

	if val := getenv("USERS_ALLOWLIST_PATH"); val != "" {
		cfg.Users.AllowlistPath = val
	}
	setInt(&cfg.Users.MaxLabelValues, "USERS_MAX_LABEL_VALUES")

	if val := getenv("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := getenv("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	setBool(&cfg.Telemetry.Tracing.Enabled, "TELEMETRY_TRACING_ENABLED")
	if val := getenv("TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	setFloat(&cfg.Telemetry.Tracing.SampleRatio, "TELEMETRY_TRACING_SAMPLE_RATIO")
}

func getenv(suffix string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + suffix))
}

func setDuration(dst *time.Duration, suffix string) {
	if val := getenv(suffix); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func setInt(dst *int, suffix string) {
	if val := getenv(suffix); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setFloat(dst *float64, suffix string) {
	if val := getenv(suffix); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, suffix string) {
	if val := getenv(suffix); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
