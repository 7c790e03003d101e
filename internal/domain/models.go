package domain

import (
	"time"
)

// UnknownOMIMID is used when a source row carries no disease OMIM identifier.
const UnknownOMIMID = "unknown"

// GeneRecord is one gene's background rare-variant count in a reference population
type GeneRecord struct {
	Symbol   string `json:"gene_symbol" csv:"gene_symbol"`
	HGNCID   string `json:"hgnc_id" csv:"hgnc_id"`
	EntrezID string `json:"entrez_id" csv:"entrez_id"`
	Count    int    `json:"count" csv:"count"`
}

// Case is a clinical case used for benchmarking.
//
// CandidateGeneIDs is absent for source cases and populated for simulated ones.
type Case struct {
	Name             string   `json:"name"`
	DiseaseOMIMID    string   `json:"disease_omim_id"`   // e.g. "OMIM:251110"
	DiseaseGeneID    string   `json:"disease_gene_id"`   // e.g. "Entrez:1301"
	HPOTerms         []string `json:"hpo_terms"`         // e.g. ["HP:0001263", "HP:0000256"]
	CandidateGeneIDs []string `json:"candidate_gene_ids,omitempty"`
}

// WithCandidates returns a copy of the case with the given candidate gene IDs.
// The receiver is left untouched.
func (c Case) WithCandidates(geneIDs []string) Case {
	out := c
	out.HPOTerms = append([]string(nil), c.HPOTerms...)
	out.CandidateGeneIDs = append([]string(nil), geneIDs...)
	return out
}

// SimulationRequest fully determines the simulation output for a fixed corpus and gene table
type SimulationRequest struct {
	CaseCount           int   `json:"case_count" mapstructure:"case_count"`
	CandidateGenesCount int   `json:"candidate_genes_count" mapstructure:"candidate_genes_count"`
	Seed                int64 `json:"seed" mapstructure:"seed"`
}

// Outcome is the result of running one case against a ranking backend.
// A nil Rank means the disease gene was not found in the backend's result.
type Outcome struct {
	Case          Case     `json:"case"`
	Rank          *int     `json:"rank"`
	ResultGeneIDs []string `json:"result_gene_ids"`
}

// Found reports whether the disease gene was ranked by the backend.
func (o Outcome) Found() bool {
	return o.Rank != nil
}

// RankOf returns an outcome for c given a backend's ranked gene IDs.
func RankOf(c Case, ranked []string) *Outcome {
	out := &Outcome{Case: c, ResultGeneIDs: ranked}
	for i, id := range ranked {
		if id == c.DiseaseGeneID {
			rank := i + 1
			out.Rank = &rank
			break
		}
	}
	return out
}

// RunRecord describes one stored benchmark run
type RunRecord struct {
	ID          string         `json:"id"`
	Backend     string         `json:"backend"`
	InputPath   string         `json:"input_path"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitempty"`
	Total       int            `json:"total"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
}
