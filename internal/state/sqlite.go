package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed conversion ledger.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates an unopened store. The logger may be nil.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the SQLite database. Use ":memory:" for an in-memory
// ledger.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	} else {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Run operations ---

// CreateRun creates a new conversion run.
func (s *SQLiteStore) CreateRun() (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished, recording its outcome and
// per-file tallies.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, converted, skipped, failed int, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, converted = ?, skipped = ?, failed = ?, error = ?
		 WHERE id = ?`,
		status, now, converted, skipped, failed, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, status, started_at, completed_at, converted, skipped, failed, error
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, status, started_at, completed_at, converted, skipped, failed, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt,
		&run.Converted, &run.Skipped, &run.Failed, &errMsg)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// --- Conversion operations ---

// RecordConversion stores the outcome of one input file.
func (s *SQLiteStore) RecordConversion(c *Conversion) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if c.ID == "" {
		c.ID = generateID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	var errorPtr *string
	if c.Error != "" {
		errorPtr = &c.Error
	}

	_, err := s.db.Exec(
		`INSERT INTO conversions (id, run_id, input, output, status, content_hash, diagnostics, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RunID, c.Input, c.Output, c.Status, c.ContentHash, c.Diagnostics, errorPtr, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}

// ListConversions retrieves the conversions of one run, in insertion
// order.
func (s *SQLiteStore) ListConversions(runID string) ([]*Conversion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, input, output, status, content_hash, diagnostics, error, created_at
		 FROM conversions WHERE run_id = ? ORDER BY created_at, input`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var out []*Conversion
	for rows.Next() {
		c := &Conversion{}
		var errMsg sql.NullString
		if err := rows.Scan(&c.ID, &c.RunID, &c.Input, &c.Output, &c.Status,
			&c.ContentHash, &c.Diagnostics, &errMsg, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		if errMsg.Valid {
			c.Error = errMsg.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Diagnostic operations ---

// RecordDiagnostics stores the diagnostics one conversion produced.
func (s *SQLiteStore) RecordDiagnostics(recs []DiagnosticRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO diagnostics (run_id, input, constraint_ref, kind, severity, message)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare diagnostic insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range recs {
		if _, err := stmt.Exec(d.RunID, d.Input, d.Constraint, d.Kind, d.Severity, d.Message); err != nil {
			return fmt.Errorf("failed to record diagnostic: %w", err)
		}
	}
	return tx.Commit()
}

// ListDiagnostics retrieves the diagnostics of one run.
func (s *SQLiteStore) ListDiagnostics(runID string) ([]DiagnosticRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT run_id, input, constraint_ref, kind, severity, message
		 FROM diagnostics WHERE run_id = ? ORDER BY input, constraint_ref`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer rows.Close()

	var out []DiagnosticRecord
	for rows.Next() {
		var d DiagnosticRecord
		if err := rows.Scan(&d.RunID, &d.Input, &d.Constraint, &d.Kind, &d.Severity, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Content hash operations ---

// GetContentHash retrieves the stored hash for an input path. Returns
// an empty string when the path has never been converted.
func (s *SQLiteStore) GetContentHash(path string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	var hash string
	err := s.db.QueryRow(`SELECT content_hash FROM content_hashes WHERE file_path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}
	return hash, nil
}

// SetContentHash stores the hash for an input path.
func (s *SQLiteStore) SetContentHash(path, hash string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`INSERT INTO content_hashes (file_path, content_hash, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET content_hash = excluded.content_hash, updated_at = excluded.updated_at`,
		path, hash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set content hash: %w", err)
	}
	return nil
}

// DeleteContentHash removes the stored hash for an input path.
func (s *SQLiteStore) DeleteContentHash(path string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(`DELETE FROM content_hashes WHERE file_path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete content hash: %w", err)
	}
	return nil
}
