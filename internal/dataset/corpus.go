package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gene-ranking-shootout/internal/domain"
)

// ReadCases decodes a JSON array of cases.
func ReadCases(r io.Reader) ([]domain.Case, error) {
	var cases []domain.Case
	if err := json.NewDecoder(r).Decode(&cases); err != nil {
		return nil, fmt.Errorf("failed to decode cases: %w", err)
	}
	return cases, nil
}

// LoadCases reads a JSON case file.
func LoadCases(path string) ([]domain.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cases: %w", err)
	}
	defer f.Close()

	cases, err := ReadCases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// WriteJSON writes v as 2-space indented JSON. Struct fields keep their
// declaration order so output diffs cleanly.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveJSON writes v to path via WriteJSON, creating parent directories.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Merge concatenates corpora keeping the first case of each name. It returns
// the merged corpus and the number of later duplicates that were dropped.
func Merge(corpora ...[]domain.Case) ([]domain.Case, int) {
	var merged []domain.Case
	seen := make(map[string]bool)
	skipped := 0
	for _, corpus := range corpora {
		for _, c := range corpus {
			if seen[c.Name] {
				skipped++
				continue
			}
			seen[c.Name] = true
			merged = append(merged, c)
		}
	}
	return merged, skipped
}

// ReadOutcomes decodes a JSON array of outcomes.
func ReadOutcomes(r io.Reader) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	if err := json.NewDecoder(r).Decode(&outcomes); err != nil {
		return nil, fmt.Errorf("failed to decode outcomes: %w", err)
	}
	return outcomes, nil
}

// LoadOutcomes reads a JSON results file.
func LoadOutcomes(path string) ([]domain.Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	defer f.Close()

	outcomes, err := ReadOutcomes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return outcomes, nil
}

// Catalog resolves dataset names against a data directory.
type Catalog struct {
	Dir string
}

// List returns the names of the JSON datasets in the directory, sorted.
func (c Catalog) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(c.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Path returns name itself when it is an existing file, otherwise
// <Dir>/<name>.json.
func (c Catalog) Path(name string) string {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name
	}
	return filepath.Join(c.Dir, name+".json")
}

// Load reads the named dataset.
func (c Catalog) Load(name string) ([]domain.Case, error) {
	return LoadCases(c.Path(name))
}
