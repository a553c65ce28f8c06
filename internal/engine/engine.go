// Package engine orchestrates batch conversion: input discovery,
// skip-if-unchanged hashing, parallel per-file conversion, and the
// conversion ledger.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cspkit/xcsp2cpo/internal/state"
	"github.com/cspkit/xcsp2cpo/pkg/cpo"
	"github.com/cspkit/xcsp2cpo/pkg/transform"
)

// Config holds engine configuration.
type Config struct {
	// OutDir is where .cpo files are written. Empty means next to the
	// input file.
	OutDir string

	// StatePath is the conversion ledger location. Empty disables the
	// ledger (no run history, no skip-if-unchanged).
	StatePath string

	// Legacy stops the pipeline after normalization, emitting source
	// constraint shapes directly.
	Legacy bool

	// Strict refuses to write output for instances that still contain
	// unsupported constraints.
	Strict bool

	// Force converts inputs even when their content hash is unchanged.
	Force bool

	// Jobs bounds parallel conversions. Zero means one per CPU.
	Jobs int

	Logger *slog.Logger
}

// Engine converts batches of XCSP3 inputs to CP Optimizer models.
type Engine struct {
	cfg      Config
	target   *cpo.Target
	pipeline transform.Pipeline
	store    *state.SQLiteStore
	logger   *slog.Logger
}

// New creates an engine, opening the conversion ledger when one is
// configured.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	e := &Engine{
		cfg:    cfg,
		target: cpo.Optimizer,
		pipeline: transform.Pipeline{
			Vocab:  cpo.Optimizer,
			Legacy: cfg.Legacy,
		},
		logger: logger,
	}

	if cfg.StatePath != "" {
		if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, err
		}
		e.store = store
	}

	return e, nil
}

// Store exposes the conversion ledger, or nil when none is configured.
func (e *Engine) Store() *state.SQLiteStore { return e.store }

// Close releases the engine's resources.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// OutputPath computes where the converted model for an input goes:
// the input name with a .cpo extension, placed in OutDir when one is
// set and next to the input otherwise.
func (e *Engine) OutputPath(input string) string {
	base := filepath.Base(input)
	for _, ext := range []string{".lzma", ".xml"} {
		base = trimSuffix(base, ext)
	}
	base += ".cpo"
	if e.cfg.OutDir != "" {
		return filepath.Join(e.cfg.OutDir, base)
	}
	return filepath.Join(filepath.Dir(input), base)
}

func trimSuffix(s, suffix string) string {
	if len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}
