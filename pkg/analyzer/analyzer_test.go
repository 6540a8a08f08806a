package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

var testModels = []string{"claude", "gpt", "gemini", "deepseek"}

func TestAnalyze_FactualSimpleConsensus(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	analysis, err := a.Analyze(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.PrimaryCategory != CategoryFactual {
		t.Errorf("Expected category factual, got %s", analysis.PrimaryCategory)
	}
	if analysis.Complexity != ComplexitySimple {
		t.Errorf("Expected complexity simple, got %s", analysis.Complexity)
	}
	if analysis.RecommendedStrategy != StrategyConsensus {
		t.Errorf("Expected strategy consensus, got %s", analysis.RecommendedStrategy)
	}
}

func TestAnalyze_CodingRecommendsDeepseek(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	analysis, err := a.Analyze(context.Background(), "Write a Python function to sort a list using bubble sort")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.PrimaryCategory != CategoryCoding {
		t.Errorf("Expected category coding, got %s", analysis.PrimaryCategory)
	}
	if score := analysis.ModelRecommendations["deepseek"]; score <= 0.8 {
		t.Errorf("Expected deepseek score > 0.8 for coding prompt, got %f", score)
	}
}

func TestAnalyze_EmptyPromptIsConversationalSimple(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	analysis, err := a.Analyze(context.Background(), "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.PrimaryCategory != CategoryConversational {
		t.Errorf("Expected category conversational for empty prompt, got %s", analysis.PrimaryCategory)
	}
	if analysis.Complexity != ComplexitySimple {
		t.Errorf("Expected complexity simple for empty prompt, got %s", analysis.Complexity)
	}
}

func TestAnalyze_ConfidenceAndTimingBounds(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	prompts := []string{
		"",
		"Hello",
		"What is the capital of France?",
		"Write a poem about quantum physics and then analyze its structure",
		strings.Repeat("explain why this matters ", 60),
	}

	for _, prompt := range prompts {
		analysis, err := a.Analyze(context.Background(), prompt)
		if err != nil {
			t.Fatalf("Analyze(%q) failed: %v", prompt, err)
		}
		if analysis.ConfidenceScore < 0 || analysis.ConfidenceScore > 1 {
			t.Errorf("Confidence out of range for %q: %f", prompt, analysis.ConfidenceScore)
		}
		if analysis.AnalysisTime < 0 {
			t.Errorf("Negative analysis time for %q: %v", prompt, analysis.AnalysisTime)
		}
		for model, score := range analysis.ModelRecommendations {
			if score < 0 || score > 1 {
				t.Errorf("Model score out of range for %s: %f", model, score)
			}
		}
	}
}

func TestAnalyze_StrategyTable(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	// Same topical makeup (single coding topic), increasing length.
	cases := []struct {
		prompt   string
		strategy Strategy
	}{
		{"Fix this bug", StrategyConsensus},
		{"Fix this bug in my code: the function returns nil instead of the value", StrategyParallel},
		{"Fix this bug: " + strings.Repeat("the function misbehaves under load ", 10), StrategyWeighted},
		{"Fix this bug: " + strings.Repeat("the function misbehaves under load ", 30), StrategyAdaptive},
	}

	for _, tc := range cases {
		analysis, err := a.Analyze(context.Background(), tc.prompt)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if analysis.RecommendedStrategy != tc.strategy {
			t.Errorf("Prompt of %d chars: expected strategy %s, got %s (complexity %s)",
				len(tc.prompt), tc.strategy, analysis.RecommendedStrategy, analysis.Complexity)
		}
	}
}

func TestAnalyze_ComplexityMonotonicInLength(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	prev := 0
	for n := 1; n <= 64; n *= 2 {
		prompt := strings.Repeat("describe the data trends here ", n)
		analysis, err := a.Analyze(context.Background(), prompt)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		rank := complexityRank[analysis.Complexity]
		if rank < prev {
			t.Errorf("Complexity decreased at length %d: rank %d < %d", len(prompt), rank, prev)
		}
		prev = rank
	}
}

func TestAnalyze_MultiTopicBumpsComplexity(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	// Three distinct topic clusters in a short prompt.
	analysis, err := a.Analyze(context.Background(),
		"Write a poem, debug my python code, and analyze the statistics")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.Complexity != ComplexityExpert {
		t.Errorf("Expected expert complexity for multi-topic prompt, got %s", analysis.Complexity)
	}
	if analysis.RecommendedStrategy != StrategyAdaptive {
		t.Errorf("Expected adaptive strategy, got %s", analysis.RecommendedStrategy)
	}
	if len(analysis.SecondaryCategories) == 0 {
		t.Error("Expected secondary categories for multi-topic prompt")
	}
}

func TestAnalyzer_RecentHistoryCapped(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	for i := 0; i < maxRecentAnalyses+10; i++ {
		if _, err := a.Analyze(context.Background(), fmt.Sprintf("prompt number %d", i)); err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
	}

	all := a.GetRecentAnalyses(0)
	if len(all) != maxRecentAnalyses {
		t.Errorf("Expected history capped at %d, got %d", maxRecentAnalyses, len(all))
	}

	// Most recent first; the oldest entries were evicted.
	if all[0].PromptText != fmt.Sprintf("prompt number %d", maxRecentAnalyses+9) {
		t.Errorf("Expected newest entry first, got %q", all[0].PromptText)
	}
}

func TestAnalyzer_GetRecentAnalysesLimit(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	for i := 0; i < 5; i++ {
		if _, err := a.Analyze(context.Background(), fmt.Sprintf("prompt %d", i)); err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
	}

	recent := a.GetRecentAnalyses(2)
	if len(recent) != 2 {
		t.Fatalf("Expected 2 analyses, got %d", len(recent))
	}
	if recent[0].PromptText != "prompt 4" || recent[1].PromptText != "prompt 3" {
		t.Errorf("Expected most-recent-first order, got %q then %q",
			recent[0].PromptText, recent[1].PromptText)
	}
}

func TestAnalyzer_Statistics(t *testing.T) {
	a := NewAnalyzer(testModels, nil)

	if _, err := a.Analyze(context.Background(), "What is the capital of France?"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if _, err := a.Analyze(context.Background(), "Write a Python function to parse json"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	stats := a.GetStatistics()
	if stats.TotalAnalyses != 2 {
		t.Errorf("Expected 2 analyses, got %d", stats.TotalAnalyses)
	}
	if stats.CategoryCounts[CategoryFactual] != 1 {
		t.Errorf("Expected 1 factual analysis, got %d", stats.CategoryCounts[CategoryFactual])
	}
	if stats.CategoryCounts[CategoryCoding] != 1 {
		t.Errorf("Expected 1 coding analysis, got %d", stats.CategoryCounts[CategoryCoding])
	}
	if stats.AverageConfidence <= 0 || stats.AverageConfidence > 1 {
		t.Errorf("Average confidence out of range: %f", stats.AverageConfidence)
	}
}

func TestAnalyze_UnknownModelGetsBaseline(t *testing.T) {
	a := NewAnalyzer([]string{"claude", "mystery-model"}, nil)

	analysis, err := a.Analyze(context.Background(), "Analyze this data set and compare trends")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	score, ok := analysis.ModelRecommendations["mystery-model"]
	if !ok {
		t.Fatal("Expected a score for every configured model")
	}
	if score != affinityBaseline {
		t.Errorf("Expected baseline score %f for unknown model, got %f", affinityBaseline, score)
	}
}
