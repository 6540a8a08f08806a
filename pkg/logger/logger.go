// Package logger provides component-tagged structured logging for the
// orchestration engine. All log lines carry a "component" key so events from
// the analyzer, decision engine and coordinator can be filtered apart.
package logger

import (
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu  sync.RWMutex
	std = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
)

// SetLevel sets the global log level from a config string.
// Unknown values fall back to info.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch level {
	case "debug":
		std.SetLevel(log.DebugLevel)
	case "warn":
		std.SetLevel(log.WarnLevel)
	case "error":
		std.SetLevel(log.ErrorLevel)
	default:
		std.SetLevel(log.InfoLevel)
	}
}

// DebugCF logs a debug message with a component tag and structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	std.Debug(msg, kvPairs(component, fields)...)
}

// InfoCF logs an info message with a component tag and structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	std.Info(msg, kvPairs(component, fields)...)
}

// WarnCF logs a warning with a component tag and structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	std.Warn(msg, kvPairs(component, fields)...)
}

// ErrorCF logs an error with a component tag and structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	std.Error(msg, kvPairs(component, fields)...)
}

// kvPairs flattens the field map into key/value pairs with the component
// first. Keys are sorted so log output is stable.
func kvPairs(component string, fields map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, 2+2*len(fields))
	out = append(out, "component", component)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
