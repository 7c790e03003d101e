package service

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gene-ranking-shootout/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func makeCorpus(n int) []domain.Case {
	corpus := make([]domain.Case, n)
	for i := range corpus {
		corpus[i] = domain.Case{
			Name:          fmt.Sprintf("case-%d", i),
			DiseaseOMIMID: fmt.Sprintf("OMIM:%d", 100000+i),
			DiseaseGeneID: fmt.Sprintf("Entrez:%d", i+1),
			HPOTerms:      []string{"HP:0001263", "HP:0000256"},
		}
	}
	return corpus
}

func makeGenes(n int, count func(i int) int) []domain.GeneRecord {
	genes := make([]domain.GeneRecord, n)
	for i := range genes {
		genes[i] = domain.GeneRecord{
			Symbol:   fmt.Sprintf("GENE%d", i+1),
			HGNCID:   fmt.Sprintf("HGNC:%d", i+1),
			EntrezID: fmt.Sprintf("Entrez:%d", i+1),
			Count:    count(i),
		}
	}
	return genes
}

func uniform(int) int { return 1 }

func TestSimulator_Scenario(t *testing.T) {
	sim := NewSimulator(quietLogger())
	corpus := makeCorpus(5)
	genes := makeGenes(30, uniform)
	req := domain.SimulationRequest{CaseCount: 3, CandidateGenesCount: 9, Seed: 42}

	first, err := sim.Simulate(corpus, genes, req)
	require.NoError(t, err)
	second, err := sim.Simulate(corpus, genes, req)
	require.NoError(t, err)

	require.Len(t, first, 3)

	known := make(map[string]bool)
	for _, g := range genes {
		known[g.EntrezID] = true
	}
	for _, c := range first {
		require.Len(t, c.CandidateGeneIDs, 9)
		assert.NotContains(t, c.CandidateGeneIDs, c.DiseaseGeneID)
		for _, id := range c.CandidateGeneIDs {
			assert.True(t, known[id], "candidate %s must come from the gene table", id)
		}
	}

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON), "same seed must give byte-identical output")

	other, err := sim.Simulate(corpus, genes, domain.SimulationRequest{CaseCount: 3, CandidateGenesCount: 9, Seed: 43})
	require.NoError(t, err)
	otherJSON, err := json.Marshal(other)
	require.NoError(t, err)
	assert.NotEqual(t, string(firstJSON), string(otherJSON), "different seed should change the composition")
}

func TestSimulator_Invariants(t *testing.T) {
	sim := NewSimulator(quietLogger())
	corpus := makeCorpus(40)
	genes := makeGenes(60, func(i int) int { return i%7 + 1 })

	for seed := int64(0); seed < 20; seed++ {
		out, err := sim.Simulate(corpus, genes, domain.SimulationRequest{CaseCount: 25, CandidateGenesCount: 19, Seed: seed})
		require.NoError(t, err)
		require.Len(t, out, 25)

		names := make(map[string]bool)
		for _, c := range out {
			assert.False(t, names[c.Name], "duplicate case %s for seed %d", c.Name, seed)
			names[c.Name] = true

			require.Len(t, c.CandidateGeneIDs, 19)
			assert.NotContains(t, c.CandidateGeneIDs, c.DiseaseGeneID)

			seen := make(map[string]bool)
			for _, id := range c.CandidateGeneIDs {
				assert.False(t, seen[id], "duplicate candidate %s in %s", id, c.Name)
				seen[id] = true
			}
		}
	}
}

func TestSimulator_ZeroCountGenesNeverDrawn(t *testing.T) {
	sim := NewSimulator(quietLogger())
	corpus := makeCorpus(50)
	// Every third gene has count zero.
	genes := makeGenes(45, func(i int) int {
		if i%3 == 0 {
			return 0
		}
		return 10 + i
	})
	zero := make(map[string]bool)
	for _, g := range genes {
		if g.Count == 0 {
			zero[g.EntrezID] = true
		}
	}

	for seed := int64(1); seed <= 30; seed++ {
		out, err := sim.Simulate(corpus, genes, domain.SimulationRequest{CaseCount: 50, CandidateGenesCount: 20, Seed: seed})
		require.NoError(t, err)
		for _, c := range out {
			for _, id := range c.CandidateGeneIDs {
				require.False(t, zero[id], "zero-count gene %s drawn with seed %d", id, seed)
			}
		}
	}
}

func TestSimulator_DoesNotMutateCorpus(t *testing.T) {
	sim := NewSimulator(quietLogger())
	corpus := makeCorpus(5)
	genes := makeGenes(30, uniform)

	_, err := sim.Simulate(corpus, genes, domain.SimulationRequest{CaseCount: 5, CandidateGenesCount: 9, Seed: 7})
	require.NoError(t, err)

	for _, c := range corpus {
		assert.Nil(t, c.CandidateGeneIDs)
	}
}

func TestSimulator_DiseaseGeneAlwaysDrawn(t *testing.T) {
	sim := NewSimulator(quietLogger())
	corpus := makeCorpus(3)
	// Exactly CandidateGenesCount+1 drawable genes: every draw contains the
	// disease gene (Entrez:1..3), so it is removed rather than the last gene.
	genes := makeGenes(5, uniform)

	out, err := sim.Simulate(corpus, genes, domain.SimulationRequest{CaseCount: 3, CandidateGenesCount: 4, Seed: 42})
	require.NoError(t, err)

	for _, c := range out {
		require.Len(t, c.CandidateGeneIDs, 4)
		assert.NotContains(t, c.CandidateGeneIDs, c.DiseaseGeneID)
		assert.ElementsMatch(t, allExcept(genes, c.DiseaseGeneID), c.CandidateGeneIDs)
	}
}

func allExcept(genes []domain.GeneRecord, id string) []string {
	var out []string
	for _, g := range genes {
		if g.EntrezID != id {
			out = append(out, g.EntrezID)
		}
	}
	return out
}

func TestSimulator_ConfigurationErrors(t *testing.T) {
	sim := NewSimulator(quietLogger())

	duplicated := makeCorpus(3)
	duplicated[2].Name = duplicated[0].Name

	tests := []struct {
		name     string
		corpus   []domain.Case
		genes    []domain.GeneRecord
		req      domain.SimulationRequest
		expected error
	}{
		{
			name:     "too many cases",
			corpus:   makeCorpus(2),
			genes:    makeGenes(30, uniform),
			req:      domain.SimulationRequest{CaseCount: 3, CandidateGenesCount: 9, Seed: 1},
			expected: domain.ErrInsufficientData,
		},
		{
			name:     "too many candidates",
			corpus:   makeCorpus(5),
			genes:    makeGenes(9, uniform),
			req:      domain.SimulationRequest{CaseCount: 1, CandidateGenesCount: 9, Seed: 1},
			expected: domain.ErrInsufficientData,
		},
		{
			name:     "all zero counts",
			corpus:   makeCorpus(5),
			genes:    makeGenes(30, func(int) int { return 0 }),
			req:      domain.SimulationRequest{CaseCount: 1, CandidateGenesCount: 9, Seed: 1},
			expected: domain.ErrDegenerateDistribution,
		},
		{
			name:   "too few non-zero counts",
			corpus: makeCorpus(5),
			genes: makeGenes(30, func(i int) int {
				if i < 5 {
					return 1
				}
				return 0
			}),
			req:      domain.SimulationRequest{CaseCount: 1, CandidateGenesCount: 9, Seed: 1},
			expected: domain.ErrInsufficientData,
		},
		{
			name:     "zero case count",
			corpus:   makeCorpus(5),
			genes:    makeGenes(30, uniform),
			req:      domain.SimulationRequest{CaseCount: 0, CandidateGenesCount: 9, Seed: 1},
			expected: domain.ErrInvalidRequest,
		},
		{
			name:     "zero candidate count",
			corpus:   makeCorpus(5),
			genes:    makeGenes(30, uniform),
			req:      domain.SimulationRequest{CaseCount: 1, CandidateGenesCount: 0, Seed: 1},
			expected: domain.ErrInvalidRequest,
		},
		{
			name:     "duplicate case names",
			corpus:   duplicated,
			genes:    makeGenes(30, uniform),
			req:      domain.SimulationRequest{CaseCount: 1, CandidateGenesCount: 9, Seed: 1},
			expected: domain.ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := sim.Simulate(tt.corpus, tt.genes, tt.req)

			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.expected)

			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestDropDiseaseGene(t *testing.T) {
	drawn := makeGenes(4, uniform)

	withDisease := dropDiseaseGene(drawn, "Entrez:2")
	assert.Equal(t, []string{"Entrez:1", "Entrez:3", "Entrez:4"}, entrezIDs(withDisease))

	withoutDisease := dropDiseaseGene(drawn, "Entrez:99")
	assert.Equal(t, []string{"Entrez:1", "Entrez:2", "Entrez:3"}, entrezIDs(withoutDisease))

	assert.Equal(t, []string{"Entrez:1", "Entrez:2", "Entrez:3", "Entrez:4"}, entrezIDs(drawn), "input must be untouched")
}

func entrezIDs(genes []domain.GeneRecord) []string {
	ids := make([]string, len(genes))
	for i, g := range genes {
		ids[i] = g.EntrezID
	}
	return ids
}
