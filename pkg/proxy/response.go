package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteJSONResponse writes v as a JSON response with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing left but to log.
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteErrorResponse writes {"detail": detail} with the given status code.
func WriteErrorResponse(w http.ResponseWriter, statusCode int, detail string) {
	WriteJSONResponse(w, statusCode, ErrorResponse{Detail: detail})
}

// WriteError maps err with HTTPStatus and Detail and writes it.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorResponse(w, HTTPStatus(err), Detail(err))
}
