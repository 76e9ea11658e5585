// Package logging provides categorized zap-based logging for mcqagent.
// Each subsystem gets a named child logger; output goes to the console and,
// when a run directory is configured, to a per-run log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryDriver    Category = "driver"
	CategoryRouter    Category = "router"
	CategoryMath      Category = "math"
	CategoryRAG       Category = "rag"
	CategoryReading   Category = "reading"
	CategoryToxic     Category = "toxic"
	CategoryLLM       Category = "llm"
	CategoryEmbedding Category = "embedding"
	CategoryStore     Category = "store"
	CategoryIngest    Category = "ingest"
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the root logger. outputDir may be empty, in which case
// logs go to stderr only. debug enables debug-level output.
// Safe to call more than once; the last call wins.
func Initialize(outputDir string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, filepath.Join(outputDir, "mcqagent.log"))
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the sugared logger for a category, creating it on first use.
// Before Initialize is called a no-op logger is returned.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	base := root
	if base == nil {
		base = zap.NewNop()
	}
	l := base.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}
