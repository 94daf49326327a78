// Package tracing provides OpenTelemetry tracing for askproxy.
//
// Tracing is off by default and a noop tracer is used. When enabled, spans
// are exported over OTLP gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: "localhost:4317"
//	    insecure: true
//	    sample_ratio: 0.1
//
// The proxy wraps every upstream call in an "upstream.chat_completion" span
// carrying the user, token counts and cost. Incoming W3C traceparent headers
// are honored by HTTPMiddleware and forwarded to the upstream with Inject.
package tracing
