// Package logging provides the structured logger used across the bridge.
// It wraps log/slog the same way internal/browser/audit.go does in the
// teacher repo: a component-scoped logger rather than a bespoke framework.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu   sync.Mutex
	base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// SetLevel adjusts the minimum level of the base logger.
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Named returns a logger scoped to the given component, e.g. "cdp-relay" or
// "tab-controller". Mirrors audit.go's slog.Default().With("component", ...).
func Named(component string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.With("component", component)
}
