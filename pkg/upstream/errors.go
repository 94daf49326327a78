package upstream

import "fmt"

// StatusError is returned when the deployment answers with a non-2xx status.
// Body holds the raw response text, which is relayed to the caller verbatim.
type StatusError struct {
	// StatusCode is the HTTP status returned by the deployment
	StatusCode int

	// Body is the raw response body
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Body)
}

// MalformedResponseError is returned when a 2xx response decodes as JSON but
// does not carry an answer at choices[0].message.content.
type MalformedResponseError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// RawResponse is the body without an answer
	RawResponse string
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return "malformed upstream response: missing choices[0].message.content"
}

// DecodeError is returned when a 2xx response body is not valid JSON.
type DecodeError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// RawResponse is the body that failed to decode
	RawResponse string

	// Cause is the JSON decode error
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode upstream response: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// TransportError wraps failures to reach the deployment at all: DNS, TLS,
// connection resets, deadline expiry or caller cancellation.
type TransportError struct {
	// URL is the request URL with the query string removed
	URL string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream request to %s failed: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}
