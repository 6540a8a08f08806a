package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/athenaml/athena/pkg/logger"
)

// HTTPProvider talks to any OpenAI-compatible chat-completion endpoint.
type HTTPProvider struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for the given endpoint. The timeout
// bounds the whole request; the secondary classifier configures a sub-second
// one so a slow backend cannot hurt analysis latency.
func NewHTTPProvider(apiKey, apiBase string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		apiKey:  apiKey,
		apiBase: strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Chat sends a chat-completion request and returns the parsed response.
func (p *HTTPProvider) Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error) {
	if p.apiBase == "" {
		return nil, fmt.Errorf("API base not configured")
	}

	requestBody := map[string]interface{}{
		"model":    model,
		"messages": buildHTTPMessages(messages),
	}
	if maxTokens, ok := options["max_tokens"].(int); ok {
		requestBody["max_tokens"] = maxTokens
	}
	if temperature, ok := options["temperature"].(float64); ok {
		requestBody["temperature"] = temperature
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.WarnCF("provider.http", "LLM request failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WarnCF("provider.http", "LLM response non-OK", map[string]interface{}{
			"model":        model,
			"status_code":  resp.StatusCode,
			"body_preview": truncateForLog(string(body), 200),
		})
		return nil, fmt.Errorf("API request failed: status %d", resp.StatusCode)
	}

	return p.parseResponse(body)
}

func buildHTTPMessages(messages []Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		out = append(out, map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}
	return out
}

func (p *HTTPProvider) parseResponse(body []byte) (*LLMResponse, error) {
	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *UsageInfo `json:"usage"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(apiResponse.Choices) == 0 {
		return &LLMResponse{Content: "", FinishReason: "stop"}, nil
	}

	choice := apiResponse.Choices[0]
	return &LLMResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        apiResponse.Usage,
	}, nil
}

// truncateForLog returns s truncated to maxLen with "..." suffix for safe logging.
func truncateForLog(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
