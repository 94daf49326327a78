// Package server wires the askproxy HTTP surface.
//
// # Routes
//
//   - POST /ask: metered question endpoint
//   - GET /usage, GET /usage/records: ledger reads
//   - GET /metrics (configurable): Prometheus exposition
//   - GET /health, GET /ready, GET /version: probes and build info
//   - GET /: HTML form for trying /ask
//
// # Middleware Chain
//
// Outermost first: recovery, request ID, access logging, trace context
// extraction, and CORS when enabled. /ask and /usage additionally carry a
// request deadline equal to the write timeout.
//
// # Lifecycle
//
//	srv := server.NewServer(&cfg.Server, cfg.Telemetry.Metrics.Path, deps)
//	err := srv.Start(ctx) // blocks until ctx is done, then drains
//
// Signal handling belongs to the caller; cancel ctx to stop the server.
package server
