package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Preferences is a small JSON-file-backed store for boolean preferences.
// The decision engine uses it to persist its enabled flag; persistence
// failures are surfaced as errors for the caller to log, never to abort on.
type Preferences struct {
	mu     sync.Mutex
	path   string
	values map[string]bool
}

// NewPreferences opens the preference store at path, loading any existing
// values. A missing or unreadable file starts the store empty.
func NewPreferences(path string) *Preferences {
	p := &Preferences{
		path:   path,
		values: make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	// A corrupt file is treated as empty rather than fatal.
	_ = json.Unmarshal(data, &p.values)
	return p
}

// SaveBool stores a boolean preference and flushes the store to disk.
// The in-memory value is updated even when the flush fails.
func (p *Preferences) SaveBool(key string, value bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.values[key] = value
	return p.flushLocked()
}

// GetBool returns the stored value for key, or false when absent.
func (p *Preferences) GetBool(key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key], nil
}

func (p *Preferences) flushLocked() error {
	data, err := json.MarshalIndent(p.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0600)
}
