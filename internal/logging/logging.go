// Package logging provides categorized zap logging for luna. Every subsystem
// logs through a category-tagged logger so one conversation's session,
// resolver, domain, and playbook activity can be filtered apart.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a log stream.
type Category string

const (
	CategorySession  Category = "session"  // Session controller decisions
	CategoryResolver Category = "resolver" // Intent resolution
	CategoryDomain   Category = "domain"   // Domain API calls
	CategoryPlaybook Category = "playbook" // Playbook library and runner
	CategoryStore    Category = "store"    // History persistence
	CategoryServer   Category = "server"   // HTTP surface
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the process logger. Called once at startup; before Init every
// logger is a no-op, which keeps library use (tests, embedding) silent.
func Init(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// SetLogger replaces the process logger. Tests use this with zaptest.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	root = l
	mu.Unlock()
}

// Get returns a sugared logger tagged with the category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sugar().With("category", string(c))
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
