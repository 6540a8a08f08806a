package athena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/athenaml/athena/pkg/analyzer"
	"github.com/athenaml/athena/pkg/bus"
	"github.com/athenaml/athena/pkg/logger"
)

var (
	// ErrNotEnabled is returned when recommendations are requested while the
	// engine gate is off.
	ErrNotEnabled = errors.New("athena: engine is not enabled")

	// ErrDisposed is returned by any operation on a disposed engine.
	ErrDisposed = errors.New("athena: engine is disposed")
)

const (
	// minModelScore is the floor below which a model is not recommended
	// (unless nothing clears it, in which case the best one is kept).
	minModelScore = 0.4

	maxRecommendedModels = 3

	// strategyOverrideConfidence: below this analysis confidence a
	// caller-supplied current strategy is kept instead of the analyzer's
	// suggestion.
	strategyOverrideConfidence = 0.6

	autoApplyConfidence = 0.8

	maxTrackedPrompts = 50
)

// PreferenceStore persists the enabled flag. Failures are logged by the
// engine, never propagated.
type PreferenceStore interface {
	SaveBool(key string, value bool) error
	GetBool(key string) (bool, error)
}

// PromptAnalyzer is the analysis dependency. *analyzer.Analyzer satisfies
// it; tests may inject failing implementations.
type PromptAnalyzer interface {
	Analyze(ctx context.Context, promptText string) (analyzer.PromptAnalysis, error)
}

// Options configures an Engine.
type Options struct {
	LedgerCapacity       int
	EnabledPreferenceKey string
}

// Context carries the caller's current orchestration configuration into a
// recommendation request. All fields are optional.
type Context struct {
	CurrentModels   []string
	CurrentStrategy analyzer.Strategy
	CurrentWeights  map[string]float64
}

// Engine is the decision engine. Construct one per process and share it by
// reference; there is no package-level instance.
type Engine struct {
	mu        sync.Mutex
	enabled   bool
	analyzing bool
	disposed  bool

	analyzer   PromptAnalyzer
	prefs      PreferenceStore
	enabledKey string

	ledger         *Ledger
	recentPrompts  []string
	lastSummary    string
	decisions      *bus.Stream[Decision]
	recommendation *bus.Stream[Recommendation]
	state          *bus.Stream[EngineState]
}

// NewEngine creates a disabled engine. A previously persisted enabled flag
// is restored best-effort from the preference store.
func NewEngine(promptAnalyzer PromptAnalyzer, prefs PreferenceStore, opts Options) *Engine {
	if opts.EnabledPreferenceKey == "" {
		opts.EnabledPreferenceKey = "athena_enabled"
	}

	e := &Engine{
		analyzer:       promptAnalyzer,
		prefs:          prefs,
		enabledKey:     opts.EnabledPreferenceKey,
		ledger:         NewLedger(opts.LedgerCapacity),
		decisions:      bus.NewStream[Decision](),
		recommendation: bus.NewStream[Recommendation](),
		state:          bus.NewStream[EngineState](),
	}

	if prefs != nil {
		if enabled, err := prefs.GetBool(e.enabledKey); err == nil {
			e.enabled = enabled
		}
	}
	return e
}

// Decisions is the broadcast stream of individual decisions.
func (e *Engine) Decisions() *bus.Stream[Decision] { return e.decisions }

// Recommendations is the broadcast stream of full recommendations.
func (e *Engine) Recommendations() *bus.Stream[Recommendation] { return e.recommendation }

// State is the broadcast stream of enabled-gate changes.
func (e *Engine) State() *bus.Stream[EngineState] { return e.state }

// IsEnabled reports the gate state.
func (e *Engine) IsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// IsAnalyzing reports whether a recommendation is being built right now.
func (e *Engine) IsAnalyzing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyzing
}

// SetEnabled flips the gate and persists the flag. A persistence failure is
// logged and does not roll back the in-memory change.
func (e *Engine) SetEnabled(enabled bool) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.enabled = enabled
	analyzing := e.analyzing
	e.mu.Unlock()

	if e.prefs != nil {
		if err := e.prefs.SaveBool(e.enabledKey, enabled); err != nil {
			logger.WarnCF("athena", "failed to persist enabled flag", map[string]interface{}{
				"enabled": enabled,
				"error":   err.Error(),
			})
		}
	}

	e.state.Publish(EngineState{
		Enabled:   enabled,
		Analyzing: analyzing,
		Timestamp: time.Now(),
	})
	return nil
}

// GetModelRecommendations analyzes the prompt and builds a recommendation
// backed by three ledger decisions (model selection, strategy selection,
// weight adjustment). It fails fast with ErrNotEnabled when the gate is off.
func (e *Engine) GetModelRecommendations(ctx context.Context, promptText string, current Context) (*Recommendation, error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil, ErrDisposed
	}
	if !e.enabled {
		e.mu.Unlock()
		return nil, ErrNotEnabled
	}
	e.analyzing = true
	e.mu.Unlock()

	// The analyzing flag must never stay stuck, even when the analyzer
	// fails.
	defer func() {
		e.mu.Lock()
		e.analyzing = false
		e.mu.Unlock()
	}()

	start := time.Now()
	analysis, err := e.analyzer.Analyze(ctx, promptText)
	if err != nil {
		return nil, fmt.Errorf("prompt analysis failed: %w", err)
	}

	models, modelDecision := e.selectModels(analysis, start)
	weights, weightDecision := e.adjustWeights(analysis, models, current.CurrentWeights, start)
	strategy, strategyDecision := e.selectStrategy(analysis, current.CurrentStrategy, start)

	overall := overallConfidence(analysis.ConfidenceScore,
		modelDecision.ConfidenceScore, strategyDecision.ConfidenceScore, weightDecision.ConfidenceScore)

	rec := &Recommendation{
		PromptText:           promptText,
		Analysis:             analysis,
		RecommendedModels:    models,
		ModelWeights:         weights,
		RecommendedStrategy:  strategy,
		Decision:             *modelDecision,
		OverallConfidence:    overall,
		AutoApplyRecommended: overall >= autoApplyConfidence,
	}

	e.mu.Lock()
	if e.disposed {
		// Disposed mid-flight: discard results quietly.
		e.mu.Unlock()
		return nil, ErrDisposed
	}
	e.ledger.Append(modelDecision)
	e.ledger.Append(strategyDecision)
	e.ledger.Append(weightDecision)
	e.trackPromptLocked(promptText)
	e.lastSummary = fmt.Sprintf("%s via %s (%.2f)", strings.Join(models, "+"), strategy, overall)
	e.mu.Unlock()

	e.decisions.Publish(*modelDecision)
	e.decisions.Publish(*strategyDecision)
	e.decisions.Publish(*weightDecision)
	e.recommendation.Publish(*rec)

	logger.InfoCF("athena", "recommendation built", map[string]interface{}{
		"models":     strings.Join(models, ","),
		"strategy":   string(strategy),
		"confidence": overall,
	})
	return rec, nil
}

// ApplyRecommendation marks the recommendation's decision as applied.
// Applying twice, or applying a recommendation whose decision has been
// evicted, is a no-op.
func (e *Engine) ApplyRecommendation(rec *Recommendation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}
	if rec == nil {
		return nil
	}
	if d := e.ledger.Get(rec.Decision.ID); d != nil && !d.WasApplied {
		d.WasApplied = true
	}
	return nil
}

// GetRecentDecisions returns up to limit ledger entries, most recent first.
func (e *Engine) GetRecentDecisions(limit int) []Decision {
	return e.ledger.Recent(limit)
}

// GetStatistics summarizes the ledger and gate state.
func (e *Engine) GetStatistics() Statistics {
	e.mu.Lock()
	enabled := e.enabled
	lastSummary := e.lastSummary
	distinct := countDistinct(e.recentPrompts)
	e.mu.Unlock()

	all := e.ledger.Recent(0)

	stats := Statistics{
		TotalDecisions:          len(all),
		DecisionsByType:         make(map[DecisionType]int),
		AverageConfidenceByType: make(map[DecisionType]float64),
		RecentDistinctPrompts:   distinct,
		Enabled:                 enabled,
		LastRecommendation:      lastSummary,
	}

	sums := make(map[DecisionType]float64)
	for _, d := range all {
		stats.DecisionsByType[d.Type]++
		sums[d.Type] += d.ConfidenceScore
	}
	for decisionType, count := range stats.DecisionsByType {
		stats.AverageConfidenceByType[decisionType] = sums[decisionType] / float64(count)
	}
	return stats
}

// ClearHistory empties the ledger and prompt tracking without touching the
// enabled gate.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger.Clear()
	e.recentPrompts = nil
	e.lastSummary = ""
}

// Dispose closes all three streams. Idempotent; later calls into the engine
// fail with ErrDisposed.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.mu.Unlock()

	e.decisions.Close()
	e.recommendation.Close()
	e.state.Close()
}

func (e *Engine) trackPromptLocked(promptText string) {
	e.recentPrompts = append(e.recentPrompts, promptText)
	if len(e.recentPrompts) > maxTrackedPrompts {
		e.recentPrompts = e.recentPrompts[len(e.recentPrompts)-maxTrackedPrompts:]
	}
}

func countDistinct(prompts []string) int {
	seen := make(map[string]struct{}, len(prompts))
	for _, p := range prompts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// selectModels picks the top-scoring models above the floor and records the
// choice as a decision.
func (e *Engine) selectModels(analysis analyzer.PromptAnalysis, start time.Time) ([]string, *Decision) {
	type scored struct {
		model string
		score float64
	}
	ranked := make([]scored, 0, len(analysis.ModelRecommendations))
	for model, score := range analysis.ModelRecommendations {
		ranked = append(ranked, scored{model, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].model < ranked[j].model
	})

	models := make([]string, 0, maxRecommendedModels)
	var scoreSum float64
	for _, r := range ranked {
		if r.score < minModelScore || len(models) == maxRecommendedModels {
			break
		}
		models = append(models, r.model)
		scoreSum += r.score
	}
	// Never recommend nothing: fall back to the single best model.
	if len(models) == 0 && len(ranked) > 0 {
		models = append(models, ranked[0].model)
		scoreSum = ranked[0].score
	}

	confidence := 0.0
	if len(models) > 0 {
		confidence = clamp01(scoreSum / float64(len(models)))
	}

	return models, &Decision{
		ID:          uuid.NewString(),
		Type:        DecisionModelSelection,
		Title:       "Model selection",
		Description: fmt.Sprintf("Selected %d of %d models for a %s prompt", len(models), len(ranked), analysis.PrimaryCategory),
		InputData: map[string]interface{}{
			"category": string(analysis.PrimaryCategory),
			"scores":   analysis.ModelRecommendations,
		},
		OutputData: map[string]interface{}{
			"models": models,
		},
		ConfidenceScore: confidence,
		ReasoningSteps: []string{
			fmt.Sprintf("ranked %d models by %s affinity", len(ranked), analysis.PrimaryCategory),
			fmt.Sprintf("kept models scoring >= %.2f, capped at %d", minModelScore, maxRecommendedModels),
		},
		ProcessingTime: time.Since(start),
		Timestamp:      time.Now(),
	}
}

// selectStrategy takes the analyzer's suggestion unless a low-confidence
// analysis meets an explicit current strategy, in which case the current one
// is kept.
func (e *Engine) selectStrategy(analysis analyzer.PromptAnalysis, current analyzer.Strategy, start time.Time) (analyzer.Strategy, *Decision) {
	strategy := analysis.RecommendedStrategy
	reason := fmt.Sprintf("analyzer suggested %s for %s complexity", strategy, analysis.Complexity)

	if current.IsValid() && analysis.ConfidenceScore < strategyOverrideConfidence {
		strategy = current
		reason = fmt.Sprintf("kept current strategy %s: analysis confidence %.2f below %.2f",
			current, analysis.ConfidenceScore, strategyOverrideConfidence)
	}

	return strategy, &Decision{
		ID:          uuid.NewString(),
		Type:        DecisionStrategySelection,
		Title:       "Strategy selection",
		Description: fmt.Sprintf("Chose %s strategy", strategy),
		InputData: map[string]interface{}{
			"complexity":    string(analysis.Complexity),
			"suggested":     string(analysis.RecommendedStrategy),
			"current":       string(current),
			"analysis_conf": analysis.ConfidenceScore,
		},
		OutputData: map[string]interface{}{
			"strategy": string(strategy),
		},
		ConfidenceScore: clamp01(analysis.ConfidenceScore),
		ReasoningSteps:  []string{reason},
		ProcessingTime:  time.Since(start),
		Timestamp:       time.Now(),
	}
}

// adjustWeights normalizes the selected models' scores into strictly
// positive weights summing to one, blending in the caller's current weights
// when present.
func (e *Engine) adjustWeights(analysis analyzer.PromptAnalysis, models []string, current map[string]float64, start time.Time) (map[string]float64, *Decision) {
	weights := make(map[string]float64, len(models))
	for _, model := range models {
		w := analysis.ModelRecommendations[model]
		if cw, ok := current[model]; ok {
			w = 0.5*w + 0.5*cw
		}
		if w <= 0 {
			w = 0.05
		}
		weights[model] = w
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum > 0 {
		for model := range weights {
			weights[model] /= sum
		}
	}

	return weights, &Decision{
		ID:          uuid.NewString(),
		Type:        DecisionWeightAdjustment,
		Title:       "Weight adjustment",
		Description: fmt.Sprintf("Normalized weights for %d models", len(weights)),
		InputData: map[string]interface{}{
			"current": current,
			"scores":  analysis.ModelRecommendations,
		},
		OutputData: map[string]interface{}{
			"weights": weights,
		},
		ConfidenceScore: weightConfidence(weights),
		ReasoningSteps: []string{
			"blended affinity scores with current weights",
			"normalized to a strictly positive distribution",
		},
		ProcessingTime: time.Since(start),
		Timestamp:      time.Now(),
	}
}

// weightConfidence scores how decisive a weight distribution is: flat maps
// score near 0.5, concentrated ones approach 0.95.
func weightConfidence(weights map[string]float64) float64 {
	n := len(weights)
	if n <= 1 {
		return 0.95
	}

	entropy := 0.0
	for _, w := range weights {
		if w > 0 {
			entropy -= w * math.Log(w)
		}
	}
	maxEntropy := math.Log(float64(n))
	concentration := 1 - entropy/maxEntropy

	confidence := 0.5 + 0.45*concentration
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0.5 {
		confidence = 0.5
	}
	return confidence
}

// overallConfidence blends analysis confidence with the per-decision
// confidences, clamping everything into [0,1] even for out-of-range inputs.
func overallConfidence(analysisConf float64, decisionConfs ...float64) float64 {
	var sum float64
	for _, c := range decisionConfs {
		sum += clamp01(c)
	}
	avg := 0.0
	if len(decisionConfs) > 0 {
		avg = sum / float64(len(decisionConfs))
	}
	return clamp01(0.4*clamp01(analysisConf) + 0.6*avg)
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
