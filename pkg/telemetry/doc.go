// Package telemetry groups the observability packages used by askproxy.
//
// # Components
//
//   - logging: slog setup with request-scoped attributes and secret redaction
//   - metrics: the Prometheus Collector that meters every upstream call
//   - tracing: OpenTelemetry spans around the upstream call
//   - health: liveness and readiness probes
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stdout))
//	if err != nil {
//		return err
//	}
//	logger.SetDefault()
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//
// Each package builds its own instances from configuration. There are no
// package-level registries or providers, except that an enabled tracer is
// installed as the global otel provider so trace context propagates.
//
// # Redaction
//
// When telemetry.logging.redact_secrets is set, attributes with key-like
// names and values that look like API keys or bearer tokens are masked:
//
//   - api_key=sk-abc123def456 → api_key=sk-a***
//   - Authorization: Bearer xyz → Authorization: Bearer ***
package telemetry
