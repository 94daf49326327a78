package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on upstream spans. Custom keys use the "askproxy."
// namespace.
const (
	AttrRequestID  = "askproxy.request_id"
	AttrUser       = "askproxy.user"
	AttrDeployment = "askproxy.deployment"

	AttrTokensPrompt     = "askproxy.tokens.prompt"
	AttrTokensCompletion = "askproxy.tokens.completion"
	AttrTokensTotal      = "askproxy.tokens.total"

	AttrCost = "askproxy.cost.total"

	AttrHTTPStatus = "http.response.status_code"
)

// SetRequestAttributes sets request identity attributes on a span.
func SetRequestAttributes(span trace.Span, requestID, user string) {
	attrs := []attribute.KeyValue{attribute.String(AttrUser, user)}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetUsageAttributes sets token and cost attributes on a span.
func SetUsageAttributes(span trace.Span, promptTokens, completionTokens, totalTokens int, cost float64) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
		attribute.Int(AttrTokensTotal, totalTokens),
		attribute.Float64(AttrCost, cost),
	)
}
