package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gene-ranking-shootout/internal/domain"
)

// DefaultGenePrefix is the gene ID namespace expected in case tables.
const DefaultGenePrefix = "Entrez:"

// ConvertStats counts what happened to each input row.
type ConvertStats struct {
	Rows      int `json:"rows"`
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
}

// TSVConverter maps rows of a headerless case table to cases.
//
// Full rows are name, disease_omim_id, disease_gene_id, hpo_terms (comma
// separated). Three-column rows lack the OMIM ID, which becomes "unknown".
// Rows whose gene ID does not start with GenePrefix are skipped, as are
// comment lines and rows with fewer than three columns.
type TSVConverter struct {
	GenePrefix string
}

// RowToCase converts a single row. ok is false when the row is skipped.
func (c TSVConverter) RowToCase(row []string) (domain.Case, bool) {
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	if len(row) == 0 || strings.HasPrefix(row[0], "#") {
		return domain.Case{}, false
	}

	var name, omimID, geneID, terms string
	switch {
	case len(row) >= 4:
		name, omimID, geneID, terms = row[0], row[1], row[2], row[3]
	case len(row) == 3:
		name, geneID, terms = row[0], row[1], row[2]
	default:
		return domain.Case{}, false
	}

	prefix := c.GenePrefix
	if prefix == "" {
		prefix = DefaultGenePrefix
	}
	if name == "" || !strings.HasPrefix(geneID, prefix) {
		return domain.Case{}, false
	}
	if omimID == "" {
		omimID = domain.UnknownOMIMID
	}

	return domain.Case{
		Name:          name,
		DiseaseOMIMID: omimID,
		DiseaseGeneID: geneID,
		HPOTerms:      splitTerms(terms),
	}, true
}

// Convert reads every row from r.
func (c TSVConverter) Convert(r io.Reader) ([]domain.Case, ConvertStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var stats ConvertStats
	cases := []domain.Case{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		kase, ok := c.RowToCase(row)
		if !ok {
			stats.Skipped++
			continue
		}
		cases = append(cases, kase)
		stats.Converted++
	}
	return cases, stats, nil
}

func splitTerms(field string) []string {
	terms := []string{}
	for _, term := range strings.Split(field, ",") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
