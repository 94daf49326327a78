// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server applies the middleware in this order, outermost first:
//
//	handler = Recovery(RequestID(Logging(Timeout(handler))))
//
// CORS is handled by github.com/go-chi/cors and trace context extraction by
// the tracing package; both are mounted on the router, not here.
//
// # Middleware Types
//
// Request tracking:
//   - RequestIDMiddleware: reuse or generate X-Request-ID, add to context and response headers
//   - LoggingMiddleware: log method, path, status, bytes and latency
//
// Resilience:
//   - RecoveryMiddleware: recover from panics, return {"detail": ...} with 500
//   - TimeoutMiddleware: put a deadline on the request context
//
// # Request ID
//
// The request ID is stored with logging.WithRequestID, so every slog
// *Context call made while serving the request carries it:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// # Thread Safety
//
// All middleware functions are thread-safe and can be called concurrently
// from multiple goroutines.
package middleware
