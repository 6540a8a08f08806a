package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/athenaml/athena/pkg/analyzer"
	"github.com/athenaml/athena/pkg/athena"
	"github.com/athenaml/athena/pkg/config"
	"github.com/athenaml/athena/pkg/logger"
	"github.com/athenaml/athena/pkg/orchestrator"
	"github.com/athenaml/athena/pkg/providers"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <prompt>\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	prompt := strings.Join(os.Args[1:], " ")

	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)

	deps := buildDependencies(cfg)
	defer deps.engine.Dispose()
	defer deps.coordinator.Dispose()

	if err := run(deps, cfg, prompt); err != nil {
		log.Fatalf("Orchestration failed: %v", err)
	}
}

// Dependencies wires the three engine components together.
type Dependencies struct {
	engine      *athena.Engine
	coordinator *orchestrator.Coordinator
}

func buildDependencies(cfg *config.Config) *Dependencies {
	// 1. Optional secondary classifier
	var classifier *analyzer.Classifier
	if cfg.Classifier.Enabled && cfg.Classifier.APIBase != "" {
		provider := providers.NewHTTPProvider(cfg.Classifier.APIKey, cfg.Classifier.APIBase,
			time.Duration(cfg.Classifier.TimeoutMillis)*time.Millisecond)
		classifier = analyzer.NewClassifier(provider, cfg.Classifier.Model,
			time.Duration(cfg.Classifier.TimeoutMillis)*time.Millisecond)
	}

	// 2. Prompt analyzer
	promptAnalyzer := analyzer.NewAnalyzer(cfg.Models.Available, classifier)

	// 3. Decision engine with persisted enable flag
	prefs := config.NewPreferences(getPreferencesPath())
	engine := athena.NewEngine(promptAnalyzer, prefs, athena.Options{
		LedgerCapacity:       cfg.Athena.LedgerCapacity,
		EnabledPreferenceKey: cfg.Athena.EnabledKey,
	})

	// 4. Orchestration coordinator
	coordinator := orchestrator.NewCoordinator(orchestrator.Options{})

	return &Dependencies{
		engine:      engine,
		coordinator: coordinator,
	}
}

func run(deps *Dependencies, cfg *config.Config, prompt string) error {
	ctx := context.Background()

	if err := deps.engine.SetEnabled(true); err != nil {
		return err
	}

	rec, err := deps.engine.GetModelRecommendations(ctx, prompt, athena.Context{})
	if err != nil {
		return err
	}
	fmt.Printf("Models: %s\nStrategy: %s\nConfidence: %.2f\n\n",
		strings.Join(rec.RecommendedModels, ", "), rec.RecommendedStrategy, rec.OverallConfidence)

	if rec.AutoApplyRecommended {
		if err := deps.engine.ApplyRecommendation(rec); err != nil {
			return err
		}
	}

	synthesis := deps.coordinator.Synthesis().Subscribe()
	progress := deps.coordinator.Progress().Subscribe()

	if !deps.coordinator.Connect(ctx, cfg.Backend.Host, cfg.Backend.Port) {
		fmt.Println("No backend reachable, running local simulation.")
	}

	err = deps.coordinator.OrchestrateAIRequest(ctx, orchestrator.Request{
		Prompt:   prompt,
		Models:   rec.RecommendedModels,
		Strategy: rec.RecommendedStrategy.String(),
		Weights:  rec.ModelWeights,
	})
	if err != nil {
		return err
	}

	timeout := time.After(60 * time.Second)
	for {
		select {
		case p := <-progress:
			fmt.Printf("[%s] %d/%d (%.0f%%)\n", p.CurrentPhase, p.CompletedModels, p.TotalModels, p.OverallProgress*100)
		case s := <-synthesis:
			fmt.Printf("\n%s\n", s.Content)
			return nil
		case <-timeout:
			return fmt.Errorf("timed out waiting for synthesis")
		}
	}
}

func getConfigPath() string {
	if path := os.Getenv("ATHENA_CONFIG"); path != "" {
		return path
	}
	return "./config.json"
}

func getPreferencesPath() string {
	if path := os.Getenv("ATHENA_PREFERENCES"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./preferences.json"
	}
	return filepath.Join(home, ".athena", "preferences.json")
}
