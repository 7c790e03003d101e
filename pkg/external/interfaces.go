// Package external implements ranking backends reached over HTTP or run as
// containers.
package external

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gene-ranking-shootout/internal/domain"
)

// Backend names accepted by NewRunner
const (
	BackendVarFishPhenix = "varfish-phenix"
	BackendAmelie        = "amelie"
	BackendExomiser      = "exomiser"
	BackendPhen2Gene     = "phen2gene"
	BackendCADA          = "cada"
)

// EntrezPrefix is the namespace prefix of entrez gene IDs.
const EntrezPrefix = "Entrez:"

// BackendNames returns the supported backend names, sorted.
func BackendNames() []string {
	names := []string{BackendVarFishPhenix, BackendAmelie, BackendExomiser, BackendPhen2Gene, BackendCADA}
	sort.Strings(names)
	return names
}

// Options carries the collaborators shared by all backends.
type Options struct {
	Genes    domain.GeneLookup
	Commands CommandRunner
	Cache    *ResponseCache
	Logger   *logrus.Logger
}

// NewRunner creates the named backend from configuration.
func NewRunner(name string, config domain.BackendsConfig, opts Options) (domain.Runner, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Commands == nil {
		opts.Commands = ExecRunner{}
	}

	switch name {
	case BackendVarFishPhenix:
		return NewVarFishPhenixRunner(config.VarFishPhenix, config.CircuitBreaker, opts)
	case BackendAmelie:
		return NewAmelieRunner(config.Amelie, config.CircuitBreaker, opts)
	case BackendExomiser:
		return NewExomiserRunner(config.Exomiser, config.CircuitBreaker, opts)
	case BackendPhen2Gene:
		return NewPhen2GeneRunner(config.ContainerRuntime, config.Phen2Gene, opts)
	case BackendCADA:
		return NewCADARunner(config.ContainerRuntime, config.CADA, opts)
	default:
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "backend",
			fmt.Sprintf("unknown backend %q, must be one of %s", name, strings.Join(BackendNames(), ", ")))
	}
}

// querySymbols returns the symbols of the candidate genes followed by the
// disease gene.
func querySymbols(genes domain.GeneLookup, c domain.Case) ([]string, error) {
	ids := make([]string, 0, len(c.CandidateGeneIDs)+1)
	ids = append(ids, c.CandidateGeneIDs...)
	return genes.SymbolsForEntrez(append(ids, c.DiseaseGeneID))
}

// rankResult builds the outcome for a case and logs when the disease gene
// is absent from the backend's ranking.
func rankResult(logger *logrus.Logger, backend string, c domain.Case, ranked []string) *domain.Outcome {
	outcome := domain.RankOf(c, ranked)
	if !outcome.Found() {
		logger.WithFields(logrus.Fields{
			"backend":      backend,
			"case":         c.Name,
			"disease_gene": c.DiseaseGeneID,
			"results":      len(ranked),
		}).Warn("Disease gene not found in results")
	}
	return outcome
}
