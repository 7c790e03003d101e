// Package results stores benchmark runs and their per-case outcomes so runs
// can be compared and re-reported later.
package results

import (
	"context"
	"io"
	"time"

	"github.com/gene-ranking-shootout/internal/domain"
)

// Store defines the interface for benchmark result storage operations.
type Store interface {
	// CreateRun registers a new run and returns it with its ID assigned.
	CreateRun(ctx context.Context, backend, inputPath string) (*domain.RunRecord, error)

	// AddOutcome appends an outcome to a run, keeping insertion order.
	AddOutcome(ctx context.Context, runID string, outcome domain.Outcome) error

	// FinishRun records the final totals of a run with its per-reason skip counts.
	FinishRun(ctx context.Context, runID string, total int, skipped map[string]int) error

	// GetRun returns a run by ID, or nil if it does not exist.
	GetRun(ctx context.Context, runID string) (*domain.RunRecord, error)

	// ListRuns returns runs, most recent first.
	ListRuns(ctx context.Context, limit, offset int) ([]*domain.RunRecord, error)

	// Outcomes returns the outcomes of a run in insertion order.
	Outcomes(ctx context.Context, runID string) ([]domain.Outcome, error)

	// ExportJSON writes a run and its outcomes to a JSON writer.
	ExportJSON(ctx context.Context, runID string, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// RunExport represents the JSON export format.
type RunExport struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Run        *domain.RunRecord `json:"run"`
	Outcomes   []domain.Outcome  `json:"outcomes"`
}
