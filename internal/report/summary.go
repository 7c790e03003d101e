package report

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/gene-ranking-shootout/internal/domain"
)

// RecallCutoffs are the top-k thresholds reported in summaries.
var RecallCutoffs = []int{1, 5, 10}

// Summary describes a benchmark run beyond the histogram
type Summary struct {
	Cases      int             `json:"cases"`
	Found      int             `json:"found"`
	Missing    int             `json:"missing"`
	Skipped    map[string]int  `json:"skipped,omitempty"`
	MeanRank   float64         `json:"mean_rank"`
	MedianRank float64         `json:"median_rank"`
	RecallAt   map[int]float64 `json:"recall_at"`
}

// Summarize computes rank statistics. skipped holds per-reason counts of
// cases that produced no outcome and may be nil.
func Summarize(outcomes []domain.Outcome, skipped map[string]int) (Summary, error) {
	s := Summary{
		Cases:    len(outcomes),
		Skipped:  skipped,
		RecallAt: make(map[int]float64, len(RecallCutoffs)),
	}

	var ranks stats.Float64Data
	for _, o := range outcomes {
		if o.Rank == nil {
			s.Missing++
			continue
		}
		s.Found++
		ranks = append(ranks, float64(*o.Rank))
	}

	if len(ranks) > 0 {
		mean, err := stats.Mean(ranks)
		if err != nil {
			return s, fmt.Errorf("failed to compute mean rank: %w", err)
		}
		median, err := stats.Median(ranks)
		if err != nil {
			return s, fmt.Errorf("failed to compute median rank: %w", err)
		}
		s.MeanRank = mean
		s.MedianRank = median
	}

	for _, k := range RecallCutoffs {
		if s.Cases == 0 {
			s.RecallAt[k] = 0
			continue
		}
		hits := 0
		for _, r := range ranks {
			if int(r) <= k {
				hits++
			}
		}
		s.RecallAt[k] = float64(hits) / float64(s.Cases)
	}

	return s, nil
}

// TotalSkipped sums the per-reason skip counts.
func (s Summary) TotalSkipped() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// RenderSummary writes the summary below a histogram.
func (r *Renderer) RenderSummary(s Summary) error {
	lines := []string{
		"",
		fmt.Sprintf("cases: %d  found: %d  missing: %d  skipped: %d", s.Cases, s.Found, s.Missing, s.TotalSkipped()),
	}

	if len(s.Skipped) > 0 {
		reasons := make([]string, 0, len(s.Skipped))
		for reason := range s.Skipped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			lines = append(lines, fmt.Sprintf("  skipped (%s): %d", reason, s.Skipped[reason]))
		}
	}

	if s.Found > 0 {
		lines = append(lines, fmt.Sprintf("mean rank: %.2f  median rank: %.1f", s.MeanRank, s.MedianRank))
	}
	for _, k := range RecallCutoffs {
		lines = append(lines, fmt.Sprintf("recall@%d: %.3f", k, s.RecallAt[k]))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}
	return nil
}
