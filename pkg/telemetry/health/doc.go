// Package health provides liveness, readiness and version endpoints.
//
// # Endpoints
//
//   - /health: liveness, 200 while the process is serving
//   - /ready: readiness, runs every registered component check
//   - /version: build information
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("ledger", health.PingCheck(store))
//	checker.RegisterDisabled("tracing")
//
//	r.Get("/health", checker.LivenessHandler())
//	r.Get("/ready", checker.ReadinessHandler())
//
// Checks run concurrently, each under its own timeout. A component that is
// turned off in configuration is reported as "disabled" and never makes the
// service unready.
package health
