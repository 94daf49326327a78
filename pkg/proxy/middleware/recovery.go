package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"askmeter-hq/askproxy/pkg/proxy"
)

// panicDetail is the only thing a client learns about a panic.
const panicDetail = "An internal error occurred. Please try again later."

// RecoveryMiddleware turns a handler panic into a 500 {"detail": ...}
// response and logs the panic value with its stack. http.ErrAbortHandler is
// re-raised so net/http can abort the connection as intended.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "handler panicked",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			proxy.WriteErrorResponse(w, http.StatusInternalServerError, panicDetail)
		}()

		next.ServeHTTP(w, r)
	})
}
