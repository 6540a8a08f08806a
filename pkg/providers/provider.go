// Package providers contains the LLM provider abstraction used by the
// analyzer's optional secondary classifier.
package providers

import "context"

// Message is a single chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// UsageInfo reports token usage for a completed request.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse is the provider-neutral completion result.
type LLMResponse struct {
	Content      string
	FinishReason string
	Usage        *UsageInfo
}

// LLMProvider abstracts a chat-completion backend.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error)
}
