package proxy

import "askmeter-hq/askproxy/pkg/costs"

// CompletionRequest is one inbound question.
type CompletionRequest struct {
	// Question is sent to the upstream deployment as a single user message.
	Question string `json:"question" validate:"required"`

	// User attributes usage and cost. Empty means the default user.
	User string `json:"user"`
}

// AskResult is returned for a successful call and is also the /ask
// response body.
type AskResult struct {
	Answer string           `json:"answer"`
	Usage  costs.TokenUsage `json:"usage"`

	// Latency is the upstream call time in seconds, rounded to milliseconds.
	Latency float64 `json:"latency"`

	// Cost is the estimated total cost in USD, rounded to micro-dollars.
	Cost float64 `json:"cost"`
}
