package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultMaxBodyBytes is used when ParseAskRequest is given no limit.
	DefaultMaxBodyBytes = 1 << 20

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseAskRequest decodes an /ask body. Bodies larger than maxBytes, invalid
// JSON and a missing or empty question all return *InvalidRequestError.
//
// Example usage:
//
//	req, err := ParseAskRequest(w, r, cfg.Server.MaxBodyBytes)
//	if err != nil {
//	    WriteErrorResponse(w, HTTPStatus(err), Detail(err))
//	    return
//	}
func ParseAskRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (*CompletionRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)

	var req CompletionRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, &InvalidRequestError{
				Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			}
		case errors.Is(err, io.EOF):
			return nil, &InvalidRequestError{Message: MissingQuestionMessage}
		default:
			return nil, &InvalidRequestError{Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	}

	if err := validate.Struct(&req); err != nil {
		return nil, &InvalidRequestError{Message: MissingQuestionMessage}
	}

	return &req, nil
}
