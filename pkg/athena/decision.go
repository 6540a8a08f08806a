// Package athena is the autonomous decision engine. It turns prompt
// analyses into auditable, confidence-scored recommendations and keeps a
// bounded ledger of every decision it makes.
package athena

import (
	"time"

	"github.com/athenaml/athena/pkg/analyzer"
)

// DecisionType identifies what kind of choice a Decision records.
type DecisionType string

const (
	DecisionModelSelection    DecisionType = "modelSelection"
	DecisionStrategySelection DecisionType = "strategySelection"
	DecisionWeightAdjustment  DecisionType = "weightAdjustment"
)

// Decision is an immutable record of one automated choice. Only WasApplied
// may change after construction, and it flips at most once.
type Decision struct {
	ID              string
	Type            DecisionType
	Title           string
	Description     string
	InputData       map[string]interface{}
	OutputData      map[string]interface{}
	ConfidenceScore float64
	ReasoningSteps  []string
	ProcessingTime  time.Duration
	Timestamp       time.Time
	WasApplied      bool
}

// Recommendation bundles the models, weights and strategy proposed for a
// prompt together with the decision that produced them.
type Recommendation struct {
	PromptText           string
	Analysis             analyzer.PromptAnalysis
	RecommendedModels    []string
	ModelWeights         map[string]float64
	RecommendedStrategy  analyzer.Strategy
	Decision             Decision
	OverallConfidence    float64
	AutoApplyRecommended bool
}

// EngineState is published on the state stream whenever the enabled gate
// changes.
type EngineState struct {
	Enabled   bool
	Analyzing bool
	Timestamp time.Time
}

// Statistics summarizes the decision ledger.
type Statistics struct {
	TotalDecisions          int
	DecisionsByType         map[DecisionType]int
	AverageConfidenceByType map[DecisionType]float64
	RecentDistinctPrompts   int
	Enabled                 bool
	LastRecommendation      string
}
