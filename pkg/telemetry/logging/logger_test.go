package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"askmeter-hq/askproxy/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "info", Format: "json", RedactSecrets: true}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "empty uses defaults", config: Config{}},
		{name: "invalid log level", config: Config{Level: "invalid", Format: "json"}, wantErr: true},
		{name: "invalid format", config: Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func newJSONLogger(t *testing.T, level string, redact bool) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: level, Format: "json", RedactSecrets: redact, Writer: buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newJSONLogger(t, "warn", false)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected debug and info to be filtered, got %q", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected warn message to be written, got %q", buf.String())
	}
	if logger.Level() != slog.LevelWarn {
		t.Errorf("expected level warn, got %v", logger.Level())
	}
}

func TestLogger_StructuredFields(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", true)

	logger.Info("ask completed", "total_tokens", 150, "cost", 0.00025)

	entry := decodeLine(t, buf)
	if entry["msg"] != "ask completed" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["total_tokens"] != float64(150) {
		t.Errorf("unexpected total_tokens %v", entry["total_tokens"])
	}
	if entry["cost"] != 0.00025 {
		t.Errorf("unexpected cost %v", entry["cost"])
	}
}

func TestLogger_With(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", true)

	child := logger.With("component", "upstream", "api_key", "0123456789abcdef")
	child.Info("calling")

	entry := decodeLine(t, buf)
	if entry["component"] != "upstream" {
		t.Errorf("expected component field, got %v", entry)
	}
	if entry["api_key"] != "0123***" {
		t.Errorf("expected api_key to be redacted in With, got %v", entry["api_key"])
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", false)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUser(ctx, "alice")
	logger.InfoContext(ctx, "processing")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id, got %v", entry)
	}
	if entry["user"] != "alice" {
		t.Errorf("expected user, got %v", entry)
	}
	if _, ok := entry["trace_id"]; ok {
		t.Errorf("expected no trace_id without a span, got %v", entry)
	}
}

func TestLogger_SecretRedaction(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  any
		redact bool
		want   string
	}{
		{name: "sensitive key", key: "api_key", value: "abcdef0123456789", redact: true, want: "abcd***"},
		{name: "embedded header", key: "detail", value: "api-key: abcdef0123456789", redact: true, want: "api-key: ***"},
		{name: "bearer token", key: "header", value: "Bearer abc.def.ghi", redact: true, want: "Bearer ***"},
		{name: "error value", key: "error", value: errors.New("bad api_key=abcdef0123456789"), redact: true, want: "bad api_key=***"},
		{name: "disabled", key: "api_key", value: "abcdef0123456789", redact: false, want: "abcdef0123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newJSONLogger(t, "info", tt.redact)
			logger.Info("msg", tt.key, tt.value)

			entry := decodeLine(t, buf)
			if entry[tt.key] != tt.want {
				t.Errorf("expected %q, got %v", tt.want, entry[tt.key])
			}
		})
	}
}

func TestLogger_Formats(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "text", Writer: buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hello", "user", "bob")
	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "user=bob") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestLogger_SetDefault(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logger, buf := newJSONLogger(t, "info", true)
	logger.SetDefault()

	slog.Default().Info("through default", "token", "supersecretvalue")
	entry := decodeLine(t, buf)
	if entry["token"] != "supe***" {
		t.Errorf("expected default logger to redact, got %v", entry["token"])
	}
}

func TestFromConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := FromConfig(config.LoggingConfig{Level: "debug", Format: "text", AddSource: true, RedactSecrets: true}, buf)

	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.RedactSecrets || cfg.Writer != buf {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]LogFormat{"json": FormatJSON, "": FormatJSON, "TEXT": FormatText} {
		got, err := parseFormat(input)
		if err != nil || got != want {
			t.Errorf("parseFormat(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := parseFormat("console"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
