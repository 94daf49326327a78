package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware sets a deadline on the request context. The handler
// runs on the calling goroutine and is expected to observe ctx.Done();
// the middleware never writes a response of its own, so there is no race
// with a handler that is still writing.
//
// A non-positive timeout leaves the context unchanged.
//
// Example usage:
//
//	handler = TimeoutMiddleware(60 * time.Second)(handler)
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
