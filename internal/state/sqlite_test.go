package state

import (
	"testing"
	"time"

	"github.com/cspkit/xcsp2cpo/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	tables := []string{"runs", "conversions", "diagnostics", "content_hashes"}
	for _, table := range tables {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
		} else {
			rows.Close()
		}
	}

	version, err := store.GetMigrationVersion()
	if err != nil {
		t.Fatalf("failed to get migration version: %v", err)
	}
	if version < 1 {
		t.Errorf("expected migration version >= 1, got %d", version)
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun()
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if run.ID == "" {
		t.Error("expected run to have an ID")
	}
	if run.Status != RunStatusRunning {
		t.Errorf("expected status running, got %s", run.Status)
	}

	if err := store.CompleteRun(run.ID, RunStatusCompleted, 3, 1, 0, ""); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
	if got.Converted != 3 || got.Skipped != 1 || got.Failed != 0 {
		t.Errorf("unexpected tallies: converted=%d skipped=%d failed=%d",
			got.Converted, got.Skipped, got.Failed)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestSQLiteStore_CompleteRunWithError(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun()
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if err := store.CompleteRun(run.ID, RunStatusFailed, 0, 0, 1, "channel lists have mismatched lengths 3 and 4"); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.Error == "" {
		t.Error("expected run error to be recorded")
	}
}

func TestSQLiteStore_CompleteUnknownRun(t *testing.T) {
	store := setupTestStore(t)

	if err := store.CompleteRun("no-such-run", RunStatusCompleted, 0, 0, 0, ""); err == nil {
		t.Error("expected error completing unknown run")
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		run, err := store.CreateRun()
		if err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		// Runs are ordered by start time; keep the timestamps distinct.
		_, err = store.db.Exec(`UPDATE runs SET started_at = ? WHERE id = ?`,
			time.Now().UTC().Add(time.Duration(i)*time.Second), run.ID)
		if err != nil {
			t.Fatalf("failed to adjust timestamp: %v", err)
		}
	}

	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Error("expected runs ordered most recent first")
	}
}

func TestSQLiteStore_Conversions(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun()
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	conv := &Conversion{
		RunID:       run.ID,
		Input:       "queens.xml",
		Output:      "queens.cpo",
		Status:      ConversionIncomplete,
		ContentHash: "abc123",
		Diagnostics: 1,
	}
	if err := store.RecordConversion(conv); err != nil {
		t.Fatalf("failed to record conversion: %v", err)
	}

	got, err := store.ListConversions(run.ID)
	if err != nil {
		t.Fatalf("failed to list conversions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 conversion, got %d", len(got))
	}
	if got[0].Input != "queens.xml" || got[0].Status != ConversionIncomplete {
		t.Errorf("unexpected conversion: %+v", got[0])
	}
	if got[0].Diagnostics != 1 {
		t.Errorf("expected 1 diagnostic, got %d", got[0].Diagnostics)
	}
}

func TestSQLiteStore_Diagnostics(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun()
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	recs := []DiagnosticRecord{
		{RunID: run.ID, Input: "a.xml", Constraint: "c4", Kind: "cumulative", Severity: "warning", Message: "no cpoptimizer rendering for cumulative"},
		{RunID: run.ID, Input: "a.xml", Constraint: "c7", Kind: "circuit", Severity: "warning", Message: "no cpoptimizer rendering for circuit"},
	}
	if err := store.RecordDiagnostics(recs); err != nil {
		t.Fatalf("failed to record diagnostics: %v", err)
	}

	got, err := store.ListDiagnostics(run.ID)
	if err != nil {
		t.Fatalf("failed to list diagnostics: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(got))
	}
	if got[0].Constraint != "c4" || got[0].Kind != "cumulative" {
		t.Errorf("unexpected diagnostic: %+v", got[0])
	}
}

func TestSQLiteStore_RecordDiagnosticsEmpty(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordDiagnostics(nil); err != nil {
		t.Fatalf("recording zero diagnostics should be a no-op: %v", err)
	}
}

func TestSQLiteStore_ContentHashes(t *testing.T) {
	store := setupTestStore(t)

	hash, err := store.GetContentHash("missing.xml")
	if err != nil {
		t.Fatalf("failed to get hash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash for unknown path, got %q", hash)
	}

	if err := store.SetContentHash("a.xml", "h1"); err != nil {
		t.Fatalf("failed to set hash: %v", err)
	}
	if err := store.SetContentHash("a.xml", "h2"); err != nil {
		t.Fatalf("failed to update hash: %v", err)
	}

	hash, err = store.GetContentHash("a.xml")
	if err != nil {
		t.Fatalf("failed to get hash: %v", err)
	}
	if hash != "h2" {
		t.Errorf("expected h2, got %q", hash)
	}

	if err := store.DeleteContentHash("a.xml"); err != nil {
		t.Fatalf("failed to delete hash: %v", err)
	}
	hash, _ = store.GetContentHash("a.xml")
	if hash != "" {
		t.Errorf("expected hash gone after delete, got %q", hash)
	}
}
