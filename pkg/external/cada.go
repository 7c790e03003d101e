package external

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gene-ranking-shootout/internal/domain"
)

// DefaultCADAImage is the locally built CADA image.
const DefaultCADAImage = "localhost/cada-for-shootout:latest"

const (
	cadaMount  = "/data"
	cadaOutput = "result.txt"
)

// cadaRow is one line of CADA's genome-wide ranking
type cadaRow struct {
	GeneID string `csv:"gene_id"`
	Score  string `csv:"score"`
}

// CADARunner ranks genes by running the CADA container.
//
// CADA ranks all genes from the terms alone, so the result is filtered down to
// the case's candidates and disease gene.
type CADARunner struct {
	*containerBackend
}

// NewCADARunner creates a runner using the given container runtime.
func NewCADARunner(runtime string, config domain.ContainerConfig, opts Options) (*CADARunner, error) {
	return &CADARunner{
		containerBackend: newContainerBackend(BackendCADA, runtime, config, DefaultCADAImage, opts),
	}, nil
}

// Name returns the backend name.
func (r *CADARunner) Name() string {
	return BackendCADA
}

// RunRanking ranks the case's terms with CADA.
func (r *CADARunner) RunRanking(ctx context.Context, c domain.Case) (*domain.Outcome, error) {
	var rows []cadaRow
	err := r.withWorkDir(func(dir string) error {
		if err := r.run(ctx, c.Name, dir, cadaMount,
			"--hpo_terms", strings.Join(c.HPOTerms, ","),
			"--out_dir", cadaMount,
		); err != nil {
			return err
		}
		return readTSV(filepath.Join(dir, cadaOutput), &rows)
	})
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}

	keep := make(map[string]bool, len(c.CandidateGeneIDs)+1)
	keep[c.DiseaseGeneID] = true
	for _, id := range c.CandidateGeneIDs {
		keep[id] = true
	}

	var ranked []string
	for _, row := range rows {
		if keep[row.GeneID] {
			ranked = append(ranked, row.GeneID)
		}
	}
	return rankResult(r.logger, r.name, c, ranked), nil
}
