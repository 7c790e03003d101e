package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gene-ranking-shootout/internal/domain"
	"github.com/gene-ranking-shootout/internal/results"
)

// RunSummary is what a benchmark run produced
type RunSummary struct {
	RunID    string           `json:"run_id,omitempty"`
	Backend  string           `json:"backend"`
	Total    int              `json:"total"`
	Outcomes []domain.Outcome `json:"outcomes"`
	Skipped  map[string]int   `json:"skipped"`
}

// SkippedTotal returns the number of cases that produced no outcome.
func (s *RunSummary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Benchmark drives one runner over a batch of cases, strictly sequentially
type Benchmark struct {
	runner        domain.Runner
	store         results.Store
	progressEvery int
	logger        *logrus.Logger
}

// NewBenchmark creates a benchmark driver. store may be nil, in which case
// runs are not recorded.
func NewBenchmark(runner domain.Runner, store results.Store, progressEvery int, logger *logrus.Logger) *Benchmark {
	return &Benchmark{
		runner:        runner,
		store:         store,
		progressEvery: progressEvery,
		logger:        logger,
	}
}

// Run ranks every case. Cases whose ranking fails are skipped and counted by
// reason. A cancelled context stops the batch; the partial summary is still
// recorded and returned together with the cancellation error. A storage
// failure aborts the run.
func (b *Benchmark) Run(ctx context.Context, cases []domain.Case, inputPath string) (*RunSummary, error) {
	summary := &RunSummary{
		Backend:  b.runner.Name(),
		Outcomes: make([]domain.Outcome, 0, len(cases)),
		Skipped:  map[string]int{},
	}

	if b.store != nil {
		run, err := b.store.CreateRun(ctx, summary.Backend, inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		summary.RunID = run.ID
	}

	log := b.logger.WithFields(logrus.Fields{
		"backend": summary.Backend,
		"run_id":  summary.RunID,
	})
	log.WithField("cases", len(cases)).Info("Running benchmark")
	started := time.Now()

	var interrupted error
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			interrupted = fmt.Errorf("benchmark interrupted after %d cases: %w", i, err)
			break
		}
		summary.Total++

		outcome, err := b.runner.RunRanking(ctx, c)
		if err != nil && ctx.Err() != nil {
			summary.Total--
			interrupted = fmt.Errorf("benchmark interrupted after %d cases: %w", i, ctx.Err())
			break
		}
		if err == nil && outcome == nil {
			err = fmt.Errorf("runner %s returned no outcome", summary.Backend)
		}

		if err != nil {
			reason := domain.SkipReason(err)
			summary.Skipped[reason]++
			log.WithFields(logrus.Fields{
				"case":   c.Name,
				"reason": reason,
				"error":  err.Error(),
			}).Warn("Skipping case")
		} else {
			summary.Outcomes = append(summary.Outcomes, *outcome)
			if b.store != nil {
				if err := b.store.AddOutcome(ctx, summary.RunID, *outcome); err != nil {
					return summary, fmt.Errorf("failed to record outcome: %w", err)
				}
			}
		}

		if b.progressEvery > 0 && (i+1)%b.progressEvery == 0 {
			log.WithFields(logrus.Fields{
				"done":    i + 1,
				"total":   len(cases),
				"skipped": summary.SkippedTotal(),
			}).Info("Benchmark progress")
		}
	}

	if b.store != nil {
		// The run is closed even when ctx was cancelled.
		finishCtx := context.WithoutCancel(ctx)
		if err := b.store.FinishRun(finishCtx, summary.RunID, summary.Total, summary.Skipped); err != nil {
			return summary, fmt.Errorf("failed to finish run: %w", err)
		}
	}

	fields := logrus.Fields{
		"outcomes": len(summary.Outcomes),
		"skipped":  summary.SkippedTotal(),
		"duration": time.Since(started).String(),
	}
	if interrupted != nil {
		log.WithFields(fields).Warn("Benchmark interrupted")
		return summary, interrupted
	}
	log.WithFields(fields).Info("Benchmark done")

	return summary, nil
}
