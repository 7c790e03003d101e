package service

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/gene-ranking-shootout/internal/domain"
)

// pcgStream is the fixed PCG increment; only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

// Simulator synthesizes candidate gene sets for corpus cases
type Simulator struct {
	logger *logrus.Logger
}

// NewSimulator creates a new case simulator
func NewSimulator(logger *logrus.Logger) *Simulator {
	return &Simulator{logger: logger}
}

// Simulate selects req.CaseCount distinct cases from corpus and gives each a
// candidate set of req.CandidateGenesCount genes drawn from frequencies with
// probability proportional to their count. The disease gene is never a
// candidate. The output depends only on the arguments: every random draw
// comes from a single stream seeded with req.Seed.
func (s *Simulator) Simulate(corpus []domain.Case, frequencies []domain.GeneRecord, req domain.SimulationRequest) ([]domain.Case, error) {
	weights, err := validateSimulation(corpus, frequencies, req)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(uint64(req.Seed), pcgStream)
	rng := rand.New(src)

	// Step 1: distinct cases, in selection order
	selected := make([]int, req.CaseCount)
	sampleuv.WithoutReplacement(selected, len(corpus), src)

	s.logger.WithFields(logrus.Fields{
		"cases":           req.CaseCount,
		"candidate_genes": req.CandidateGenesCount,
		"seed":            req.Seed,
	}).Debug("Simulating cases")

	simulated := make([]domain.Case, 0, req.CaseCount)
	for _, idx := range selected {
		kase := corpus[idx]

		// Step 2a: weighted draw without replacement
		sampler := sampleuv.NewWeighted(weights, src)
		drawn := make([]domain.GeneRecord, 0, req.CandidateGenesCount+1)
		for len(drawn) < req.CandidateGenesCount+1 {
			geneIdx, ok := sampler.Take()
			if !ok {
				return nil, domain.NewConfigurationError(domain.ErrInsufficientData, "frequencies",
					fmt.Sprintf("ran out of genes with non-zero count after %d draws", len(drawn)))
			}
			drawn = append(drawn, frequencies[geneIdx])
		}

		// Step 2b: keep the candidate set size fixed
		candidates := dropDiseaseGene(drawn, kase.DiseaseGeneID)

		// Step 2c: remove any positional signal
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})

		ids := make([]string, len(candidates))
		for i, gene := range candidates {
			ids[i] = gene.EntrezID
		}
		simulated = append(simulated, kase.WithCandidates(ids))
	}

	return simulated, nil
}

// dropDiseaseGene removes the disease gene when drawn, otherwise the last-drawn gene.
func dropDiseaseGene(drawn []domain.GeneRecord, diseaseGeneID string) []domain.GeneRecord {
	for i, gene := range drawn {
		if gene.EntrezID == diseaseGeneID {
			return append(drawn[:i:i], drawn[i+1:]...)
		}
	}
	return drawn[:len(drawn)-1]
}

// validateSimulation checks every precondition up front and returns the sampling weights.
func validateSimulation(corpus []domain.Case, frequencies []domain.GeneRecord, req domain.SimulationRequest) ([]float64, error) {
	if req.CaseCount <= 0 {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "case_count",
			fmt.Sprintf("must be positive, got %d", req.CaseCount))
	}
	if req.CandidateGenesCount <= 0 {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "candidate_genes_count",
			fmt.Sprintf("must be positive, got %d", req.CandidateGenesCount))
	}
	if req.CaseCount > len(corpus) {
		return nil, domain.NewConfigurationError(domain.ErrInsufficientData, "case_count",
			fmt.Sprintf("requested %d cases but corpus has %d", req.CaseCount, len(corpus)))
	}
	if req.CandidateGenesCount+1 > len(frequencies) {
		return nil, domain.NewConfigurationError(domain.ErrInsufficientData, "candidate_genes_count",
			fmt.Sprintf("need %d genes but table has %d", req.CandidateGenesCount+1, len(frequencies)))
	}

	names := make(map[string]bool, len(corpus))
	for _, c := range corpus {
		if names[c.Name] {
			return nil, domain.NewConfigurationError(domain.ErrInsufficientData, "corpus",
				fmt.Sprintf("duplicate case name %q", c.Name))
		}
		names[c.Name] = true
	}

	weights := make([]float64, len(frequencies))
	positive := 0
	for i, gene := range frequencies {
		if gene.Count < 0 {
			return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "count",
				fmt.Sprintf("gene %s has negative count %d", gene.Symbol, gene.Count))
		}
		if gene.Count > 0 {
			positive++
		}
		weights[i] = float64(gene.Count)
	}
	if positive == 0 {
		return nil, domain.NewConfigurationError(domain.ErrDegenerateDistribution, "count",
			"all gene counts are zero")
	}
	if positive < req.CandidateGenesCount+1 {
		return nil, domain.NewConfigurationError(domain.ErrInsufficientData, "count",
			fmt.Sprintf("need %d genes with non-zero count but table has %d", req.CandidateGenesCount+1, positive))
	}

	return weights, nil
}
