// Package metrics provides the Prometheus instruments of the metering pipeline.
//
// # Overview
//
// A Collector owns one prometheus.Registry and every instrument the proxy
// updates. It is constructed once at startup and injected into the proxy and
// the HTTP layer.
//
// # Instruments
//
// With the default "openai" namespace:
//
//	openai_requests_total                counter    successful calls
//	openai_errors_total                  counter    failed calls
//	openai_tokens_total                  counter    total tokens
//	openai_prompt_tokens_total           counter    prompt tokens
//	openai_completion_tokens_total       counter    completion tokens
//	openai_cost_total                    counter    estimated USD
//	openai_request_latency_seconds       histogram  0.5, 1, 2, 3, 5, 10
//	openai_user_cost_total{user}         counter    estimated USD by user
//	openai_requests_by_user_total{user}  counter    successful calls by user
//	openai_cache_savings_ratio           gauge      simulated, see SimulatedCacheSavings
//	openai_success_ratio                 gauge      reserved
//	openai_rate_limited_total            counter    reserved
//	openai_response_latency_seconds      histogram  reserved, 0.1, 0.5, 1, 2, 5, 10
//
// Reserved instruments are registered and exposed but nothing in the proxy
// updates them.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.ObserveLatency(elapsed)
//	if err != nil {
//		collector.RecordFailure()
//	} else {
//		collector.RecordSuccess(metrics.SuccessSample{
//			User:             "alice",
//			PromptTokens:     100,
//			CompletionTokens: 50,
//			TotalTokens:      150,
//			Cost:             0.00025,
//		})
//	}
//
// The generic IncrementCounter, ObserveHistogram and SetGauge operations
// address instruments by name and reject unknown names or negative deltas.
//
// # Cardinality Management
//
// Per-user series are keyed by the value returned from the configured
// LabelPolicy, which maps unknown or excess users to a shared "other" label.
package metrics
