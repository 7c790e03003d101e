package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gene-ranking-shootout/internal/domain"
)

func TestTSVConverter_RowToCase(t *testing.T) {
	tests := []struct {
		name     string
		row      []string
		expected domain.Case
		ok       bool
	}{
		{
			name: "full row",
			row:  []string{"case-1", "OMIM:251110", "Entrez:1301", "HP:0001263,HP:0000256"},
			expected: domain.Case{
				Name:          "case-1",
				DiseaseOMIMID: "OMIM:251110",
				DiseaseGeneID: "Entrez:1301",
				HPOTerms:      []string{"HP:0001263", "HP:0000256"},
			},
			ok: true,
		},
		{
			name: "short row without OMIM",
			row:  []string{"case-2", "Entrez:7", "HP:0000001"},
			expected: domain.Case{
				Name:          "case-2",
				DiseaseOMIMID: domain.UnknownOMIMID,
				DiseaseGeneID: "Entrez:7",
				HPOTerms:      []string{"HP:0000001"},
			},
			ok: true,
		},
		{
			name: "empty OMIM column",
			row:  []string{"case-3", "", "Entrez:8", "HP:1, HP:2 ,"},
			expected: domain.Case{
				Name:          "case-3",
				DiseaseOMIMID: domain.UnknownOMIMID,
				DiseaseGeneID: "Entrez:8",
				HPOTerms:      []string{"HP:1", "HP:2"},
			},
			ok: true,
		},
		{
			name: "wrong gene prefix",
			row:  []string{"case-4", "OMIM:1", "ENSG00000187498", "HP:1"},
			ok:   false,
		},
		{
			name: "too short",
			row:  []string{"case-5", "Entrez:1"},
			ok:   false,
		},
		{
			name: "comment",
			row:  []string{"#name", "omim", "gene", "terms"},
			ok:   false,
		},
	}

	conv := TSVConverter{GenePrefix: DefaultGenePrefix}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := conv.RowToCase(tt.row)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestTSVConverter_Convert(t *testing.T) {
	input := "#name\tomim\tgene\tterms\n" +
		"case-1\tOMIM:251110\tEntrez:1301\tHP:0001263,HP:0000256\n" +
		"case-2\tEntrez:7\tHP:0000001\n" +
		"case-3\tOMIM:1\tENSG0001\tHP:1\n"

	cases, stats, err := TSVConverter{}.Convert(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, ConvertStats{Rows: 4, Converted: 2, Skipped: 2}, stats)
	require.Len(t, cases, 2)
	assert.Equal(t, "case-2", cases[1].Name)
}

func TestTSVConverter_RoundTripThroughJSON(t *testing.T) {
	rows := [][]string{
		{"case-1", "OMIM:251110", "Entrez:1301", "HP:0001263,HP:0000256,HP:0008414"},
		{"case-2", "OMIM:123", "Entrez:4", "HP:0000001"},
	}
	var tsv strings.Builder
	for _, row := range rows {
		tsv.WriteString(strings.Join(row, "\t") + "\n")
	}

	converted, _, err := TSVConverter{}.Convert(strings.NewReader(tsv.String()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, converted))
	loaded, err := ReadCases(&buf)
	require.NoError(t, err)

	require.Len(t, loaded, len(rows))
	for i, row := range rows {
		direct := domain.Case{
			Name:          row[0],
			DiseaseOMIMID: row[1],
			DiseaseGeneID: row[2],
			HPOTerms:      strings.Split(row[3], ","),
		}
		assert.Equal(t, direct, loaded[i])
	}
}
