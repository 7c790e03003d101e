package external

import (
	"context"
	"path/filepath"

	"github.com/gene-ranking-shootout/internal/domain"
)

// DefaultPhen2GeneImage is the published Phen2Gene image.
const DefaultPhen2GeneImage = "docker.io/genomicslab/phen2gene"

const (
	phen2geneMount  = "/code/out"
	phen2geneOutput = "output_file.associated_gene_list"
)

// phen2geneRow is one line of Phen2Gene's ranked gene list
type phen2geneRow struct {
	Rank  string `csv:"Rank"`
	Gene  string `csv:"Gene"`
	ID    string `csv:"ID"`
	Score string `csv:"Score"`
}

// Phen2GeneRunner ranks genes by running the Phen2Gene container.
type Phen2GeneRunner struct {
	*containerBackend
	genes domain.GeneLookup
}

// NewPhen2GeneRunner creates a runner using the given container runtime.
func NewPhen2GeneRunner(runtime string, config domain.ContainerConfig, opts Options) (*Phen2GeneRunner, error) {
	return &Phen2GeneRunner{
		containerBackend: newContainerBackend(BackendPhen2Gene, runtime, config, DefaultPhen2GeneImage, opts),
		genes:            opts.Genes,
	}, nil
}

// Name returns the backend name.
func (r *Phen2GeneRunner) Name() string {
	return BackendPhen2Gene
}

// RunRanking writes the case's terms and genes and ranks them with Phen2Gene.
func (r *Phen2GeneRunner) RunRanking(ctx context.Context, c domain.Case) (*domain.Outcome, error) {
	symbols, err := querySymbols(r.genes, c)
	if err != nil {
		return nil, err
	}

	var rows []phen2geneRow
	err = r.withWorkDir(func(dir string) error {
		if err := writeLines(filepath.Join(dir, "terms.txt"), c.HPOTerms); err != nil {
			return err
		}
		if err := writeLines(filepath.Join(dir, "genes.txt"), symbols); err != nil {
			return err
		}
		if err := r.run(ctx, c.Name, dir, phen2geneMount,
			"-f", phen2geneMount+"/terms.txt",
			"-l", phen2geneMount+"/genes.txt",
		); err != nil {
			return err
		}
		return readTSV(filepath.Join(dir, phen2geneOutput), &rows)
	})
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}

	ranked := make([]string, 0, len(rows))
	for _, row := range rows {
		ranked = append(ranked, row.Gene)
	}
	ids, err := r.genes.EntrezForSymbols(ranked)
	if err != nil {
		return nil, err
	}
	return rankResult(r.logger, r.name, c, ids), nil
}
