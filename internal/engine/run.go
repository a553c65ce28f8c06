package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cspkit/xcsp2cpo/internal/state"
	"github.com/cspkit/xcsp2cpo/pkg/ir"
	"github.com/cspkit/xcsp2cpo/pkg/parser"
)

// FileResult is the outcome of converting one input file.
type FileResult struct {
	Input       string
	Output      string
	Status      state.ConversionStatus
	Diagnostics []ir.Diagnostic
	Err         error
}

// Summary aggregates the outcome of one batch run.
type Summary struct {
	RunID      string
	Results    []FileResult
	Converted  int
	Skipped    int
	Failed     int
	Incomplete int
	Elapsed    time.Duration
}

// ConvertAll converts every input, in parallel up to the configured job
// limit. Inputs are independent instances, so conversions share nothing
// beyond the ledger. A per-file failure (malformed instance, strict
// refusal, I/O error) is recorded in that file's result and does not
// abort the batch; the returned error covers batch-level failures only.
func (e *Engine) ConvertAll(ctx context.Context, inputs []string) (*Summary, error) {
	started := time.Now()

	var run *state.Run
	if e.store != nil {
		var err error
		run, err = e.store.CreateRun()
		if err != nil {
			return nil, err
		}
	}

	results := make([]FileResult, len(inputs))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Jobs)
	for i, input := range inputs {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			results[i] = e.convertOne(input)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Results: results, Elapsed: time.Since(started)}
	for _, r := range results {
		switch r.Status {
		case state.ConversionConverted:
			summary.Converted++
		case state.ConversionIncomplete:
			summary.Converted++
			summary.Incomplete++
		case state.ConversionSkipped:
			summary.Skipped++
		case state.ConversionFailed:
			summary.Failed++
		}
	}

	if e.store != nil {
		summary.RunID = run.ID
		if err := e.record(run.ID, results, summary); err != nil {
			return summary, err
		}
	}

	e.logger.Info("batch finished",
		slog.Int("converted", summary.Converted),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// convertOne converts a single input file.
func (e *Engine) convertOne(input string) FileResult {
	res := FileResult{Input: input, Output: e.OutputPath(input)}

	data, err := os.ReadFile(input)
	if err != nil {
		res.Status = state.ConversionFailed
		res.Err = err
		return res
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if e.store != nil && !e.cfg.Force {
		prev, err := e.store.GetContentHash(input)
		if err == nil && prev == hash {
			if _, statErr := os.Stat(res.Output); statErr == nil {
				e.logger.Debug("skipping unchanged input", slog.String("input", input))
				res.Status = state.ConversionSkipped
				return res
			}
		}
	}

	inst, diags, err := parser.ParseFile(input)
	if err != nil {
		res.Status = state.ConversionFailed
		res.Err = fmt.Errorf("parse %s: %w", input, err)
		return res
	}

	pipeDiags, err := e.pipeline.Transform(inst)
	res.Diagnostics = append(diags, pipeDiags...)
	if err != nil {
		res.Status = state.ConversionFailed
		res.Err = fmt.Errorf("transform %s: %w", input, err)
		return res
	}

	if inst.Incomplete && e.cfg.Strict {
		res.Status = state.ConversionFailed
		res.Err = fmt.Errorf("%s: unsupported constraints remain and strict mode is on", input)
		return res
	}

	text, err := e.target.Format(inst)
	if err != nil {
		res.Status = state.ConversionFailed
		res.Err = fmt.Errorf("render %s: %w", input, err)
		return res
	}

	if dir := filepath.Dir(res.Output); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			res.Status = state.ConversionFailed
			res.Err = err
			return res
		}
	}
	if err := os.WriteFile(res.Output, []byte(text), 0644); err != nil {
		res.Status = state.ConversionFailed
		res.Err = err
		return res
	}

	if e.store != nil {
		if err := e.store.SetContentHash(input, hash); err != nil {
			e.logger.Warn("failed to store content hash", slog.String("input", input), slog.Any("error", err))
		}
	}

	if inst.Incomplete {
		res.Status = state.ConversionIncomplete
	} else {
		res.Status = state.ConversionConverted
	}
	e.logger.Debug("converted", slog.String("input", input), slog.String("output", res.Output),
		slog.Int("diagnostics", len(res.Diagnostics)))
	return res
}

// record persists the batch outcome in the ledger.
func (e *Engine) record(runID string, results []FileResult, summary *Summary) error {
	for _, r := range results {
		conv := &state.Conversion{
			RunID:       runID,
			Input:       r.Input,
			Output:      r.Output,
			Status:      r.Status,
			Diagnostics: len(r.Diagnostics),
		}
		if r.Err != nil {
			conv.Error = r.Err.Error()
		}
		if err := e.store.RecordConversion(conv); err != nil {
			return err
		}

		recs := make([]state.DiagnosticRecord, 0, len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			recs = append(recs, state.DiagnosticRecord{
				RunID:      runID,
				Input:      r.Input,
				Constraint: d.Constraint,
				Kind:       string(d.Kind),
				Severity:   d.Severity.String(),
				Message:    d.Message,
			})
		}
		if err := e.store.RecordDiagnostics(recs); err != nil {
			return err
		}
	}

	status := state.RunStatusCompleted
	if summary.Failed > 0 && summary.Converted == 0 && summary.Skipped == 0 {
		status = state.RunStatusFailed
	}
	return e.store.CompleteRun(runID, status, summary.Converted, summary.Skipped, summary.Failed, "")
}
