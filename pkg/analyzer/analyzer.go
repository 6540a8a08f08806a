package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/athenaml/athena/pkg/logger"
)

const (
	// fallbackConfidence is the fixed confidence used when the secondary
	// classifier was attempted and failed.
	fallbackConfidence = 0.75

	// maxRecentAnalyses caps the rolling analysis history.
	maxRecentAnalyses = 50

	// maxTimingSamples caps the per-category timing history.
	maxTimingSamples = 100

	maxSecondaryCategories = 2
)

// Analyzer classifies prompts. It is safe for concurrent use; the only
// shared state is the bounded rolling history kept for statistics.
type Analyzer struct {
	models     []string
	classifier *Classifier

	mu      sync.Mutex
	recent  []PromptAnalysis
	timings map[Category][]time.Duration
}

// NewAnalyzer creates an analyzer for the configured model identifiers.
// classifier may be nil, in which case analysis is heuristic-only.
func NewAnalyzer(models []string, classifier *Classifier) *Analyzer {
	return &Analyzer{
		models:     models,
		classifier: classifier,
		timings:    make(map[Category][]time.Duration),
	}
}

// Analyze classifies a prompt. It never fails: every internal problem,
// including a secondary classifier error, is downgraded to a heuristic-only
// result with a reasoning step recording the fallback. The error return is
// always nil from this implementation and exists for interface
// compatibility with injectable analyzers.
func (a *Analyzer) Analyze(ctx context.Context, promptText string) (PromptAnalysis, error) {
	start := time.Now()

	steps := make([]string, 0, 6)
	primary, secondary, hitsByCategory := classifyCategories(promptText)
	steps = append(steps, fmt.Sprintf("matched %d %s keywords", hitsByCategory[primary], primary))

	complexity := classifyComplexity(promptText, hitsByCategory)
	steps = append(steps, fmt.Sprintf("complexity %s from %d chars across %d topics",
		complexity, len(promptText), countTopics(hitsByCategory)))

	confidence := heuristicConfidence(hitsByCategory, primary)
	strategy := strategyForComplexity[complexity]
	steps = append(steps, fmt.Sprintf("strategy %s selected for %s complexity", strategy, complexity))

	if a.classifier != nil {
		primary, complexity, confidence, steps = a.refine(ctx, promptText, primary, complexity, confidence, steps)
		// Strategy follows the (possibly refined) complexity.
		strategy = strategyForComplexity[complexity]
	}

	analysis := PromptAnalysis{
		PromptText:           promptText,
		PrimaryCategory:      primary,
		SecondaryCategories:  secondary,
		Complexity:           complexity,
		ConfidenceScore:      clamp01(confidence),
		ModelRecommendations: a.recommendModels(primary),
		RecommendedStrategy:  strategy,
		ReasoningSteps:       steps,
		AnalysisTime:         time.Since(start),
		Timestamp:            time.Now(),
	}

	a.record(analysis)
	return analysis, nil
}

// refine asks the secondary classifier to adjust category, complexity and
// confidence. Any failure keeps the heuristic result and pins confidence to
// the fallback default.
func (a *Analyzer) refine(ctx context.Context, promptText string, primary Category,
	complexity Complexity, confidence float64, steps []string) (Category, Complexity, float64, []string) {

	refinement, ok := a.classifier.Refine(ctx, promptText)
	if !ok {
		logger.WarnCF("analyzer", "secondary classifier unavailable", map[string]interface{}{
			"prompt_len": len(promptText),
		})
		return primary, complexity, fallbackConfidence,
			append(steps, "secondary classifier unavailable, heuristic result kept")
	}

	if refinement.Category != "" {
		if refinement.Category != primary {
			steps = append(steps, fmt.Sprintf("classifier refined category %s -> %s", primary, refinement.Category))
		}
		primary = refinement.Category
	}
	if refinement.Complexity != "" {
		if refinement.Complexity != complexity {
			steps = append(steps, fmt.Sprintf("classifier refined complexity %s -> %s", complexity, refinement.Complexity))
		}
		complexity = refinement.Complexity
	}
	if refinement.Confidence >= 0 {
		confidence = clamp01(refinement.Confidence)
	}
	return primary, complexity, confidence, steps
}

// GetRecentAnalyses returns up to limit analyses, most recent first.
// limit <= 0 returns the whole retained history.
func (a *Analyzer) GetRecentAnalyses(limit int) []PromptAnalysis {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.recent)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]PromptAnalysis, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, a.recent[i])
	}
	return out
}

// GetStatistics summarizes the retained history.
func (a *Analyzer) GetStatistics() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Statistics{
		TotalAnalyses:       len(a.recent),
		CategoryCounts:      make(map[Category]int),
		AverageAnalysisTime: make(map[Category]time.Duration),
	}

	var confidenceSum float64
	for _, analysis := range a.recent {
		stats.CategoryCounts[analysis.PrimaryCategory]++
		confidenceSum += analysis.ConfidenceScore
	}
	if len(a.recent) > 0 {
		stats.AverageConfidence = confidenceSum / float64(len(a.recent))
	}

	for category, samples := range a.timings {
		if len(samples) == 0 {
			continue
		}
		var total time.Duration
		for _, d := range samples {
			total += d
		}
		stats.AverageAnalysisTime[category] = total / time.Duration(len(samples))
	}
	return stats
}

func (a *Analyzer) record(analysis PromptAnalysis) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent = append(a.recent, analysis)
	if len(a.recent) > maxRecentAnalyses {
		a.recent = a.recent[len(a.recent)-maxRecentAnalyses:]
	}

	samples := append(a.timings[analysis.PrimaryCategory], analysis.AnalysisTime)
	if len(samples) > maxTimingSamples {
		samples = samples[len(samples)-maxTimingSamples:]
	}
	a.timings[analysis.PrimaryCategory] = samples
}

func (a *Analyzer) recommendModels(category Category) map[string]float64 {
	out := make(map[string]float64, len(a.models))
	for _, model := range a.models {
		out[model] = affinityScore(category, model)
	}
	return out
}

// classifyCategories scores the prompt against every keyword table. The
// category with the most hits wins; ties (including zero hits) resolve to
// conversational. Secondary categories are the next-best hit categories.
func classifyCategories(promptText string) (Category, []Category, map[Category]int) {
	lower := strings.ToLower(strings.TrimSpace(promptText))
	hits := make(map[Category]int, len(categoryKeywords))

	if lower == "" {
		return CategoryConversational, nil, hits
	}

	for category, keywords := range categoryKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				hits[category]++
			}
		}
	}

	ranked := make([]scoredCategory, 0, len(hits))
	for category, count := range hits {
		if count > 0 {
			ranked = append(ranked, scoredCategory{category, count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].category < ranked[j].category
	})

	if len(ranked) == 0 {
		return CategoryConversational, nil, hits
	}
	if len(ranked) > 1 && ranked[0].count == ranked[1].count {
		// Ambiguous top score: fall back to conversational but keep the
		// contenders as secondary categories.
		secondary := collectSecondary(ranked, CategoryConversational)
		return CategoryConversational, secondary, hits
	}

	primary := ranked[0].category
	return primary, collectSecondary(ranked[1:], primary), hits
}

type scoredCategory struct {
	category Category
	count    int
}

func collectSecondary(ranked []scoredCategory, primary Category) []Category {
	out := make([]Category, 0, maxSecondaryCategories)
	for _, r := range ranked {
		if r.category == primary {
			continue
		}
		out = append(out, r.category)
		if len(out) == maxSecondaryCategories {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// classifyComplexity buckets by prompt length, then bumps the bucket up for
// multi-topic prompts. Bumps only ever increase complexity, so the result is
// monotonic non-decreasing in length for prompts of the same topical makeup.
func classifyComplexity(promptText string, hits map[Category]int) Complexity {
	length := len(strings.TrimSpace(promptText))

	var c Complexity
	switch {
	case length > 1000:
		c = ComplexityExpert
	case length > 280:
		c = ComplexityComplex
	case length >= 40:
		c = ComplexityModerate
	default:
		c = ComplexitySimple
	}

	topics := countTopics(hits)
	if topics >= 3 {
		c = maxComplexity(c, ComplexityExpert)
	} else if topics == 2 {
		c = maxComplexity(c, ComplexityComplex)
	}
	return c
}

func countTopics(hits map[Category]int) int {
	topics := 0
	for _, count := range hits {
		if count > 0 {
			topics++
		}
	}
	return topics
}

func maxComplexity(a, b Complexity) Complexity {
	if complexityRank[b] > complexityRank[a] {
		return b
	}
	return a
}

// heuristicConfidence derives confidence from how decisively the primary
// category won. Always within [0,1].
func heuristicConfidence(hits map[Category]int, primary Category) float64 {
	top := hits[primary]
	if top == 0 {
		return 0.7
	}

	second := 0
	for category, count := range hits {
		if category != primary && count > second {
			second = count
		}
	}

	margin := top - second
	if margin > 3 {
		margin = 3
	}
	return clamp01(0.75 + 0.05*float64(margin))
}
