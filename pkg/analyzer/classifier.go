package analyzer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/athenaml/athena/pkg/providers"
)

// Refinement is the secondary classifier's adjustment to a heuristic
// analysis. Empty Category/Complexity and a negative Confidence mean "keep
// the heuristic value" for that field.
type Refinement struct {
	Category   Category
	Complexity Complexity
	Confidence float64
}

// Classifier wraps a cheap LLM backend for refining heuristic analyses.
// It reports success with a bool rather than an error: a broken or slow
// classifier must never fail an analysis.
type Classifier struct {
	provider providers.LLMProvider
	model    string
	timeout  time.Duration
}

// NewClassifier creates a classifier. timeout bounds each refinement call so
// analysis stays within its responsiveness budget.
func NewClassifier(provider providers.LLMProvider, model string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	return &Classifier{
		provider: provider,
		model:    model,
		timeout:  timeout,
	}
}

const classifierSystemPrompt = "You are a strict prompt classifier. Return JSON only with keys: " +
	"category, complexity, confidence. category must be one of factual, conversational, creative, " +
	"coding, analytical, reasoning, specialized. complexity must be one of simple, moderate, " +
	"complex, expert. confidence must be 0..1."

// Refine asks the backend to classify the prompt. The response is
// tolerant-parsed: each field is applied only if valid, and anything
// unparsable yields (zero, false).
func (c *Classifier) Refine(ctx context.Context, promptText string) (Refinement, bool) {
	if c == nil || c.provider == nil {
		return Refinement{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Chat(ctx, []providers.Message{
		{Role: "system", Content: classifierSystemPrompt},
		{Role: "user", Content: "Classify this prompt:\n" + promptText},
	}, c.model, map[string]interface{}{
		"temperature": 0.0,
		"max_tokens":  120,
	})
	if err != nil || resp == nil {
		return Refinement{}, false
	}

	raw := extractFirstJSONText(resp.Content)
	if raw == "" {
		return Refinement{}, false
	}

	var parsed struct {
		Category   string   `json:"category"`
		Complexity string   `json:"complexity"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Refinement{}, false
	}

	out := Refinement{Confidence: -1}

	category := Category(strings.ToLower(strings.TrimSpace(parsed.Category)))
	if isValidCategory(category) {
		out.Category = category
	}

	complexity := Complexity(strings.ToLower(strings.TrimSpace(parsed.Complexity)))
	if isValidComplexity(complexity) {
		out.Complexity = complexity
	}

	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		out.Confidence = *parsed.Confidence
	}

	return out, true
}

// extractFirstJSONText returns the first balanced JSON object in text, or ""
// when none exists.
func extractFirstJSONText(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
