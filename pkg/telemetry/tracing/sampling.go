package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createSampler returns a parent-based sampler for ratio.
//
// A ratio of 1 or more samples everything, 0 or less samples nothing, and
// anything in between samples by trace ID hash so that all spans of one
// trace get the same decision. The parent's decision always wins when the
// incoming request carries a traceparent header.
func createSampler(ratio float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}
