// Package handlers provides the HTTP endpoint handlers.
//
// # Handler Types
//
//   - AskHandler: POST /ask, the metered question endpoint
//   - UsageHandler: GET /usage and GET /usage/records, reads from the ledger
//   - Home: GET /, a small HTML form for trying /ask from a browser
//
// Liveness and readiness are served by the telemetry/health package and
// /metrics by the metrics collector.
//
// # Error Handling
//
// All handlers write errors as
//
//	{"detail": "Missing 'question' field"}
//
// /ask relays the upstream status for upstream failures, 502 for unusable
// upstream bodies and 500 for everything else. The usage endpoints answer
// 503 when the ledger is disabled and 400 on malformed query parameters.
package handlers
