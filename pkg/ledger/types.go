package ledger

import (
	"context"
	"time"
)

// Status classifies the outcome of a proxied call.
type Status string

const (
	// StatusSuccess is a call that returned an answer and updated the
	// success-side instruments.
	StatusSuccess Status = "success"

	// StatusUpstreamError is a call the upstream deployment rejected or
	// answered with a malformed body.
	StatusUpstreamError Status = "upstream_error"

	// StatusInternalError is a call that failed inside the proxy: transport
	// failure, timeout, cancellation.
	StatusInternalError Status = "internal_error"
)

// Record is one proxied call as persisted in the usage ledger.
// The question and answer text are never stored.
type Record struct {
	// ID is a unique identifier (UUID) assigned by the recorder.
	ID string `json:"id"`

	// RequestID correlates the record with logs and the X-Request-ID header.
	RequestID string `json:"request_id"`

	// User is the caller-supplied user, "anonymous" when none was given.
	User string `json:"user"`

	// LabelUser is the value used for the per-user metric label, which may
	// be the overflow label when cardinality is bounded.
	LabelUser string `json:"label_user"`

	Status     Status `json:"status"`
	StatusCode int    `json:"status_code"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	PromptCost     float64 `json:"prompt_cost"`
	CompletionCost float64 `json:"completion_cost"`
	TotalCost      float64 `json:"total_cost"`

	// Latency is the wall time of the upstream call.
	Latency time.Duration `json:"latency"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter selects records from storage. Zero values match everything.
type Filter struct {
	User   string
	Status Status
	Since  time.Time
	Until  time.Time

	// Limit caps the number of records returned; 0 means no limit.
	Limit  int
	Offset int
}

// UserSummary aggregates ledger records for one user.
type UserSummary struct {
	User             string  `json:"user"`
	Requests         int64   `json:"requests"`
	Failures         int64   `json:"failures"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
}

// Storage defines the interface for ledger storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching f, newest first.
	Query(ctx context.Context, f Filter) ([]*Record, error)

	// SummarizeByUser aggregates records created at or after since, ordered
	// by total cost descending. A zero since covers all records.
	SummarizeByUser(ctx context.Context, since time.Time) ([]UserSummary, error)

	// Prune deletes records created before the given time and returns how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases the backend's resources.
	Close() error
}
