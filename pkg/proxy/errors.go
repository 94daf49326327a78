package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

// MissingQuestionMessage is the detail returned when no question is given.
const MissingQuestionMessage = "Missing 'question' field"

// InvalidRequestError is a caller error detected before any upstream call.
// It never touches metrics.
type InvalidRequestError struct {
	Message string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return e.Message
}

// UpstreamError is a non-2xx response from the deployment, or a 2xx JSON
// response without an answer.
type UpstreamError struct {
	// StatusCode is relayed to the caller. Malformed 2xx bodies use 502.
	StatusCode int

	// Body is the upstream response text, relayed as the error detail.
	Body string

	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// InternalError is any other failure: transport errors, timeouts,
// cancellation.
type InternalError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *InternalError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps an error returned by Ask to the HTTP status for the caller.
func HTTPStatus(err error) int {
	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.StatusCode >= 100 && upstream.StatusCode <= 599 {
			return upstream.StatusCode
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// Detail returns the human-readable message placed in the error body.
func Detail(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Body
	}
	return err.Error()
}
