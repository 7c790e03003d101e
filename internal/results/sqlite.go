package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gene-ranking-shootout/internal/domain"
)

// ErrRunNotFound is returned for operations on an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite results store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*domain.RunRecord, error) {
	run := &domain.RunRecord{}
	var finished sql.NullTime
	var reasons sql.NullString

	err := s.Scan(&run.ID, &run.Backend, &run.InputPath, &run.StartedAt, &finished, &run.Total, &run.Skipped, &reasons)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	if reasons.Valid && reasons.String != "" {
		if err := json.Unmarshal([]byte(reasons.String), &run.SkipReasons); err != nil {
			return nil, fmt.Errorf("failed to decode skip reasons: %w", err)
		}
	}
	return run, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		input_path TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		total INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		skip_reasons TEXT
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		case_name TEXT NOT NULL,
		rank INTEGER,
		payload TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_case_name ON outcomes(case_name);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateRun registers a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, backend, inputPath string) (*domain.RunRecord, error) {
	run := &domain.RunRecord{
		ID:        uuid.NewString(),
		Backend:   backend,
		InputPath: inputPath,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, backend, input_path, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Backend, run.InputPath, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// AddOutcome appends an outcome to a run.
func (s *SQLiteStore) AddOutcome(ctx context.Context, runID string, outcome domain.Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	var rank sql.NullInt64
	if outcome.Rank != nil {
		rank = sql.NullInt64{Int64: int64(*outcome.Rank), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, position, case_name, rank, payload)
		SELECT ?, COALESCE(MAX(position), 0) + 1, ?, ?, ?
		FROM outcomes WHERE run_id = ?
	`, runID, outcome.Case.Name, rank, string(payload), runID)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// FinishRun records the final totals of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, total int, skipped map[string]int) error {
	reasons, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("failed to marshal skip reasons: %w", err)
	}
	skippedTotal := 0
	for _, n := range skipped {
		skippedTotal += n
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, total = ?, skipped = ?, skip_reasons = ? WHERE id = ?",
		time.Now().UTC(), total, skippedTotal, string(reasons), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns a run by ID, or nil if it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, backend, input_path, started_at, finished_at, total, skipped, skip_reasons
		FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return run, nil
}

// ListRuns returns runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, backend, input_path, started_at, finished_at, total, skipped, skip_reasons
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Outcomes returns the outcomes of a run in insertion order.
func (s *SQLiteStore) Outcomes(ctx context.Context, runID string) ([]domain.Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM outcomes WHERE run_id = ? ORDER BY position",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []domain.Outcome{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var outcome domain.Outcome
		if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
			return nil, fmt.Errorf("failed to decode outcome: %w", err)
		}
		result = append(result, outcome)
	}
	return result, rows.Err()
}

// ExportJSON writes a run and its outcomes to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, runID string, writer io.Writer) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	outcomes, err := s.Outcomes(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list outcomes: %w", err)
	}

	export := &RunExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Run:        run,
		Outcomes:   outcomes,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
