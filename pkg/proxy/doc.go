// Package proxy implements the metered question-answering pipeline.
//
// An Asker takes one CompletionRequest, forwards the question to the
// configured chat-completion deployment, and publishes what the call cost:
// tokens, estimated USD, latency, and per-user attribution.
//
// # Architecture
//
//   - Asker: the pipeline itself, independent of HTTP
//   - Handlers: /ask, /usage, /health, /ready and the HTML form
//   - Middleware: request ID, logging, recovery and request deadlines
//
// # Metric updates
//
// Every call that reaches the upstream observes the latency histogram.
// A successful call then updates the request, token, cost and per-user
// instruments; any failure increments the error counter instead. Requests
// rejected before the upstream call (a missing question) touch nothing.
//
// # Errors
//
// Ask returns one of three error types:
//
//   - *InvalidRequestError: 400
//   - *UpstreamError: the upstream status, or 502 for an unusable 2xx body
//   - *InternalError: 500 (transport failures, timeouts, cancellation)
//
// HTTPStatus and Detail map them onto the {"detail": ...} error body.
//
// # Basic Usage
//
//	asker := proxy.NewAsker(client, collector, calculator,
//	    proxy.WithRecorder(rec),
//	    proxy.WithTimeout(cfg.Upstream.Timeout),
//	)
//	result, err := asker.Ask(ctx, proxy.CompletionRequest{Question: "What is Go?", User: "alice"})
//
// # Thread Safety
//
// An Asker is safe for concurrent use. The metrics collector and the
// recorder it wraps synchronize internally.
package proxy
