package costs

// TokenUsage contains the token counts reported by the upstream.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used.
	TotalTokens int `json:"total_tokens"`
}

// CostEstimate contains cost calculations in USD.
type CostEstimate struct {
	// PromptCost is the cost for prompt tokens in USD.
	PromptCost float64

	// CompletionCost is the cost for completion tokens in USD.
	CompletionCost float64

	// TotalCost is the total cost in USD.
	TotalCost float64
}

// Pricing contains per-1K-token rates in USD.
type Pricing struct {
	// PromptPer1K is the cost per 1000 prompt tokens.
	PromptPer1K float64

	// CompletionPer1K is the cost per 1000 completion tokens.
	CompletionPer1K float64
}
