// Package dataset loads and writes the inputs of a benchmark: the background
// gene frequency table and case corpora.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/gene-ranking-shootout/internal/domain"
)

// GeneTable is an immutable gene frequency table with bidirectional
// entrez ID <-> symbol lookup.
type GeneTable struct {
	records        []domain.GeneRecord
	entrezToSymbol map[string]string
	symbolToEntrez map[string]string
}

var _ domain.GeneLookup = (*GeneTable)(nil)

// NewGeneTable indexes records. Entrez IDs and symbols must be unique.
func NewGeneTable(records []domain.GeneRecord) (*GeneTable, error) {
	t := &GeneTable{
		records:        append([]domain.GeneRecord(nil), records...),
		entrezToSymbol: make(map[string]string, len(records)),
		symbolToEntrez: make(map[string]string, len(records)),
	}
	for i, r := range records {
		if r.Count < 0 {
			return nil, fmt.Errorf("gene %s on row %d has negative count %d", r.Symbol, i+1, r.Count)
		}
		if _, dup := t.entrezToSymbol[r.EntrezID]; dup {
			return nil, fmt.Errorf("duplicate entrez id %s on row %d", r.EntrezID, i+1)
		}
		if _, dup := t.symbolToEntrez[r.Symbol]; dup {
			return nil, fmt.Errorf("duplicate gene symbol %s on row %d", r.Symbol, i+1)
		}
		t.entrezToSymbol[r.EntrezID] = r.Symbol
		t.symbolToEntrez[r.Symbol] = r.EntrezID
	}
	return t, nil
}

// ReadGeneTable decodes a tab-separated gene table with a header row
// (gene_symbol, hgnc_id, entrez_id, count).
func ReadGeneTable(r io.Reader) (*GeneTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true

	records := []domain.GeneRecord{}
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		return nil, fmt.Errorf("failed to decode gene table: %w", err)
	}
	return NewGeneTable(records)
}

// LoadGeneTable reads a gene table from path.
func LoadGeneTable(path string) (*GeneTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gene table: %w", err)
	}
	defer f.Close()

	table, err := ReadGeneTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Records returns a copy of the table rows in file order.
func (t *GeneTable) Records() []domain.GeneRecord {
	return append([]domain.GeneRecord(nil), t.records...)
}

// Len returns the number of genes.
func (t *GeneTable) Len() int {
	return len(t.records)
}

// SymbolForEntrez returns the gene symbol of an entrez ID.
func (t *GeneTable) SymbolForEntrez(entrezID string) (string, error) {
	symbol, ok := t.entrezToSymbol[entrezID]
	if !ok {
		return "", domain.NewLookupError(domain.NamespaceEntrez, entrezID)
	}
	return symbol, nil
}

// EntrezForSymbol returns the entrez ID of a gene symbol.
func (t *GeneTable) EntrezForSymbol(symbol string) (string, error) {
	entrezID, ok := t.symbolToEntrez[symbol]
	if !ok {
		return "", domain.NewLookupError(domain.NamespaceSymbol, symbol)
	}
	return entrezID, nil
}

// SymbolsForEntrez maps every ID, failing on the first unknown one.
func (t *GeneTable) SymbolsForEntrez(entrezIDs []string) ([]string, error) {
	symbols := make([]string, 0, len(entrezIDs))
	for _, id := range entrezIDs {
		symbol, err := t.SymbolForEntrez(id)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// EntrezForSymbols maps every symbol, failing on the first unknown one.
func (t *GeneTable) EntrezForSymbols(symbols []string) ([]string, error) {
	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		id, err := t.EntrezForSymbol(symbol)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
