package metrics

import (
	"askmeter-hq/askproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrument names, without the namespace prefix.
const (
	NameRequests         = "requests_total"
	NameErrors           = "errors_total"
	NameTokens           = "tokens_total"
	NamePromptTokens     = "prompt_tokens_total"
	NameCompletionTokens = "completion_tokens_total"
	NameRequestLatency   = "request_latency_seconds"
	NameRequestsByUser   = "requests_by_user_total"
	NameRateLimited      = "rate_limited_total"
	NameSuccessRatio     = "success_ratio"
	NameResponseLatency  = "response_latency_seconds"
)

// RequestMetrics tracks traffic volume, failures, token consumption and
// latency of upstream completion calls.
//
// Metrics:
//   - openai_requests_total: Successful upstream calls
//   - openai_errors_total: Failed calls of any kind
//   - openai_tokens_total, openai_prompt_tokens_total, openai_completion_tokens_total
//   - openai_request_latency_seconds: Upstream call latency, all outcomes
//   - openai_requests_by_user_total{user}: Successful calls per user
//
// Reserved, registered but never updated by the proxy:
//   - openai_rate_limited_total
//   - openai_success_ratio
//   - openai_response_latency_seconds
type RequestMetrics struct {
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	tokensTotal           prometheus.Counter
	promptTokensTotal     prometheus.Counter
	completionTokensTotal prometheus.Counter

	requestLatency prometheus.Histogram

	requestsByUser *prometheus.CounterVec

	rateLimitedTotal prometheus.Counter
	successRatio     prometheus.Gauge
	responseLatency  prometheus.Histogram
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      name,
			Help:      help,
		})
	}

	rm := &RequestMetrics{
		requestsTotal:         counter(NameRequests, "Total number of OpenAI requests"),
		errorsTotal:           counter(NameErrors, "Total number of OpenAI request errors"),
		tokensTotal:           counter(NameTokens, "Total tokens used"),
		promptTokensTotal:     counter(NamePromptTokens, "Prompt tokens used"),
		completionTokensTotal: counter(NameCompletionTokens, "Completion tokens used"),

		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      NameRequestLatency,
			Help:      "Latency of OpenAI requests",
			Buckets:   cfg.RequestLatencyBuckets,
		}),

		requestsByUser: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      NameRequestsByUser,
				Help:      "Number of requests grouped by user/team",
			},
			[]string{"user"},
		),

		rateLimitedTotal: counter(NameRateLimited, "Number of requests rejected due to rate limits"),

		successRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      NameSuccessRatio,
			Help:      "Ratio of successful to total requests",
		}),

		responseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      NameResponseLatency,
			Help:      "Latency of OpenAI API responses in seconds",
			Buckets:   cfg.ResponseLatencyBuckets,
		}),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.errorsTotal,
		rm.tokensTotal,
		rm.promptTokensTotal,
		rm.completionTokensTotal,
		rm.requestLatency,
		rm.requestsByUser,
		rm.rateLimitedTotal,
		rm.successRatio,
		rm.responseLatency,
	)

	return rm
}
