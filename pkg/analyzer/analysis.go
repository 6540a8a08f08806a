// Package analyzer classifies prompts and proposes model weights and an
// orchestration strategy. Classification is keyword-heuristic and fully
// deterministic; an optional secondary classifier may refine the result but
// can never make analysis fail.
package analyzer

import "time"

// Category is the primary topical classification of a prompt.
type Category string

const (
	CategoryFactual        Category = "factual"
	CategoryConversational Category = "conversational"
	CategoryCreative       Category = "creative"
	CategoryCoding         Category = "coding"
	CategoryAnalytical     Category = "analytical"
	CategoryReasoning      Category = "reasoning"
	CategorySpecialized    Category = "specialized"
)

// Complexity buckets a prompt by length and topical spread.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityExpert   Complexity = "expert"
)

// Strategy is the orchestration policy governing how multiple model
// responses are combined.
type Strategy string

const (
	StrategyParallel   Strategy = "parallel"
	StrategySequential Strategy = "sequential"
	StrategyConsensus  Strategy = "consensus"
	StrategyWeighted   Strategy = "weighted"
	StrategyAdaptive   Strategy = "adaptive"
)

// String returns the strategy's string representation.
func (s Strategy) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known strategies.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyParallel, StrategySequential, StrategyConsensus, StrategyWeighted, StrategyAdaptive:
		return true
	default:
		return false
	}
}

// PromptAnalysis is the immutable result of analyzing one prompt.
type PromptAnalysis struct {
	PromptText           string
	PrimaryCategory      Category
	SecondaryCategories  []Category
	Complexity           Complexity
	ConfidenceScore      float64
	ModelRecommendations map[string]float64
	RecommendedStrategy  Strategy
	ReasoningSteps       []string
	AnalysisTime         time.Duration
	Timestamp            time.Time
}

// Statistics summarizes the analyzer's bounded rolling history.
type Statistics struct {
	TotalAnalyses       int
	CategoryCounts      map[Category]int
	AverageConfidence   float64
	AverageAnalysisTime map[Category]time.Duration
}

// strategyForComplexity is the deterministic strategy table. Expert prompts
// get the adaptive strategy even when they surface multiple secondary
// categories.
var strategyForComplexity = map[Complexity]Strategy{
	ComplexitySimple:   StrategyConsensus,
	ComplexityModerate: StrategyParallel,
	ComplexityComplex:  StrategyWeighted,
	ComplexityExpert:   StrategyAdaptive,
}

// complexityRank orders buckets so heuristic bumps can only increase
// complexity, keeping it monotonic in prompt length.
var complexityRank = map[Complexity]int{
	ComplexitySimple:   0,
	ComplexityModerate: 1,
	ComplexityComplex:  2,
	ComplexityExpert:   3,
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryFactual, CategoryConversational, CategoryCreative, CategoryCoding,
		CategoryAnalytical, CategoryReasoning, CategorySpecialized:
		return true
	default:
		return false
	}
}

func isValidComplexity(c Complexity) bool {
	_, ok := complexityRank[c]
	return ok
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
