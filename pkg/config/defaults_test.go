package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input *Config
		check func(*testing.T, *Config)
	}{
		{
			name:  "empty config gets all defaults",
			input: newSeededConfig(),
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != DefaultListenAddress {
					t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
				}
				if cfg.Server.WriteTimeout != DefaultWriteTimeout {
					t.Errorf("expected write timeout %v, got %v", DefaultWriteTimeout, cfg.Server.WriteTimeout)
				}
				if cfg.Upstream.APIVersion != DefaultAPIVersion {
					t.Errorf("expected api version %q, got %q", DefaultAPIVersion, cfg.Upstream.APIVersion)
				}
				if cfg.Upstream.MaxTokens != 500 {
					t.Errorf("expected max tokens 500, got %d", cfg.Upstream.MaxTokens)
				}
				if cfg.Pricing.PromptPer1K != 0.0015 {
					t.Errorf("expected prompt rate 0.0015, got %v", cfg.Pricing.PromptPer1K)
				}
				if cfg.Pricing.CompletionPer1K != 0.002 {
					t.Errorf("expected completion rate 0.002, got %v", cfg.Pricing.CompletionPer1K)
				}
				if cfg.Ledger.Backend != DefaultLedgerBackend {
					t.Errorf("expected ledger backend %q, got %q", DefaultLedgerBackend, cfg.Ledger.Backend)
				}
				if !cfg.Ledger.SQLite.WALMode {
					t.Error("expected WAL mode to default to true")
				}
				if cfg.Ledger.Retention.Days != DefaultLedgerRetentionDays {
					t.Errorf("expected retention days %d, got %d", DefaultLedgerRetentionDays, cfg.Ledger.Retention.Days)
				}
				if cfg.Users.Default != "anonymous" {
					t.Errorf("expected default user %q, got %q", "anonymous", cfg.Users.Default)
				}
				if cfg.Users.OtherLabel != DefaultOtherLabel {
					t.Errorf("expected other label %q, got %q", DefaultOtherLabel, cfg.Users.OtherLabel)
				}
				if cfg.Telemetry.Metrics.Namespace != "openai" {
					t.Errorf("expected namespace %q, got %q", "openai", cfg.Telemetry.Metrics.Namespace)
				}
				if !cfg.Telemetry.Logging.RedactSecrets {
					t.Error("expected secret redaction to default to true")
				}
			},
		},
		{
			name: "existing values are preserved",
			input: &Config{
				Server:   ServerConfig{ListenAddress: "0.0.0.0:9000", WriteTimeout: 5 * time.Second},
				Upstream: UpstreamConfig{APIVersion: "2023-05-15", MaxTokens: 64},
				Pricing:  PricingConfig{PromptPer1K: 0.01},
				Ledger:   LedgerConfig{Backend: "memory"},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != "0.0.0.0:9000" {
					t.Errorf("listen address overwritten: %q", cfg.Server.ListenAddress)
				}
				if cfg.Server.WriteTimeout != 5*time.Second {
					t.Errorf("write timeout overwritten: %v", cfg.Server.WriteTimeout)
				}
				if cfg.Upstream.APIVersion != "2023-05-15" {
					t.Errorf("api version overwritten: %q", cfg.Upstream.APIVersion)
				}
				if cfg.Upstream.MaxTokens != 64 {
					t.Errorf("max tokens overwritten: %d", cfg.Upstream.MaxTokens)
				}
				if cfg.Pricing.PromptPer1K != 0.01 {
					t.Errorf("prompt rate overwritten: %v", cfg.Pricing.PromptPer1K)
				}
				if cfg.Pricing.CompletionPer1K != DefaultCompletionPer1K {
					t.Errorf("expected completion default, got %v", cfg.Pricing.CompletionPer1K)
				}
				if cfg.Ledger.Backend != "memory" {
					t.Errorf("backend overwritten: %q", cfg.Ledger.Backend)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ApplyDefaults(tt.input)
			tt.check(t, tt.input)
		})
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := MinimalConfig()
	before := *cfg
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != before.Server.ListenAddress || cfg.Server.WriteTimeout != before.Server.WriteTimeout {
		t.Errorf("server config changed on second ApplyDefaults")
	}
	if cfg.Upstream != before.Upstream {
		t.Errorf("upstream config changed on second ApplyDefaults")
	}
	if len(cfg.Telemetry.Metrics.RequestLatencyBuckets) != len(DefaultRequestLatencyBuckets) {
		t.Errorf("buckets changed on second ApplyDefaults: %v", cfg.Telemetry.Metrics.RequestLatencyBuckets)
	}
}

func TestApplyDefaults_BucketsAreCopied(t *testing.T) {
	cfg := newSeededConfig()
	ApplyDefaults(cfg)
	cfg.Telemetry.Metrics.RequestLatencyBuckets[0] = 42

	if DefaultRequestLatencyBuckets[0] == 42 {
		t.Fatal("ApplyDefaults shared the package default bucket slice")
	}
}

func TestMinimalConfig_IsValid(t *testing.T) {
	if err := Validate(MinimalConfig()); err != nil {
		t.Fatalf("MinimalConfig should validate: %v", err)
	}
}
