package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the engine configuration, loaded from a JSON file and then
// overridden by environment variables.
type Config struct {
	Log        LogConfig        `json:"log"`
	Models     ModelsConfig     `json:"models"`
	Athena     AthenaConfig     `json:"athena"`
	Classifier ClassifierConfig `json:"classifier"`
	Backend    BackendConfig    `json:"backend"`
}

type LogConfig struct {
	Level string `json:"level" env:"ATHENA_LOG_LEVEL"`
}

type ModelsConfig struct {
	// Available is the set of model identifiers the coordinator may dispatch
	// to, e.g. "claude", "gpt", "gemini", "deepseek".
	Available []string `json:"available" env:"ATHENA_MODELS_AVAILABLE"`
}

type AthenaConfig struct {
	// EnabledKey is the preference key under which the enabled flag persists.
	EnabledKey     string `json:"enabled_key" env:"ATHENA_ENABLED_KEY"`
	LedgerCapacity int    `json:"ledger_capacity" env:"ATHENA_LEDGER_CAPACITY"`
}

// ClassifierConfig configures the optional secondary prompt classifier.
// An empty APIBase disables it; the analyzer then runs heuristics only.
type ClassifierConfig struct {
	Enabled       bool   `json:"enabled" env:"ATHENA_CLASSIFIER_ENABLED"`
	APIKey        string `json:"api_key" env:"ATHENA_CLASSIFIER_API_KEY"`
	APIBase       string `json:"api_base" env:"ATHENA_CLASSIFIER_API_BASE"`
	Model         string `json:"model" env:"ATHENA_CLASSIFIER_MODEL"`
	TimeoutMillis int    `json:"timeout_millis" env:"ATHENA_CLASSIFIER_TIMEOUT_MILLIS"`
}

type BackendConfig struct {
	Host string `json:"host" env:"ATHENA_BACKEND_HOST"`
	// Port 0 means discovery over the default port list.
	Port int `json:"port" env:"ATHENA_BACKEND_PORT"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Models: ModelsConfig{
			Available: []string{"claude", "gpt", "gemini", "deepseek"},
		},
		Athena: AthenaConfig{
			EnabledKey:     "athena_enabled",
			LedgerCapacity: 100,
		},
		Classifier: ClassifierConfig{
			Enabled:       false,
			Model:         "qwen2.5:3b",
			TimeoutMillis: 800,
		},
		Backend: BackendConfig{
			Host: "localhost",
			Port: 0,
		},
	}
}

// LoadConfig reads the config file at path, applying defaults for anything
// missing and environment overrides on top. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the config as indented JSON, creating parent directories
// as needed.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
