package upstream

import "askmeter-hq/askproxy/pkg/costs"

// Completion is a successful answer together with the usage reported for it.
type Completion struct {
	Answer string
	Usage  costs.TokenUsage
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// chatResponse mirrors the subset of the chat-completion response that is read.
// Pointers distinguish absent fields from zero values.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int  `json:"prompt_tokens"`
		CompletionTokens int  `json:"completion_tokens"`
		TotalTokens      *int `json:"total_tokens"`
	} `json:"usage"`
}
