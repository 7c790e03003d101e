package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gene-ranking-shootout/internal/dataset"
	"github.com/gene-ranking-shootout/internal/domain"
	"github.com/gene-ranking-shootout/internal/results"
	"github.com/gene-ranking-shootout/pkg/external"
)

const geneTSV = "gene_symbol\thgnc_id\tentrez_id\tcount\n" +
	"AAA\tHGNC:1\tEntrez:1\t5\n" +
	"BBB\tHGNC:2\tEntrez:2\t5\n" +
	"CCC\tHGNC:3\tEntrez:3\t5\n" +
	"DDD\tHGNC:4\tEntrez:4\t5\n" +
	"EEE\tHGNC:5\tEntrez:5\t5\n" +
	"FFF\tHGNC:6\tEntrez:6\t5\n"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupDataDir writes a gene table and one dataset into a temp directory.
func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gnomad_counts.tsv"), []byte(geneTSV), 0644))

	cases := []domain.Case{
		{Name: "c1", DiseaseOMIMID: "OMIM:1", DiseaseGeneID: "Entrez:1", HPOTerms: []string{"HP:0000001"}},
		{Name: "c2", DiseaseOMIMID: "OMIM:2", DiseaseGeneID: "Entrez:2", HPOTerms: []string{"HP:0000002"}},
		{Name: "c3", DiseaseOMIMID: "OMIM:3", DiseaseGeneID: "Entrez:3", HPOTerms: []string{"HP:0000003"}},
	}
	require.NoError(t, dataset.SaveJSON(filepath.Join(dir, "cases.json"), cases))
	return dir
}

// fakeRunner puts the disease gene first for c1, leaves it out for c2 and
// fails c3 with a lookup error.
type fakeRunner struct{}

func (fakeRunner) Name() string { return "fake" }

func (fakeRunner) RunRanking(_ context.Context, c domain.Case) (*domain.Outcome, error) {
	switch c.Name {
	case "c1":
		return domain.RankOf(c, []string{c.DiseaseGeneID, "Entrez:9"}), nil
	case "c2":
		return domain.RankOf(c, []string{"Entrez:9"}), nil
	default:
		return nil, domain.NewLookupError(domain.NamespaceEntrez, c.DiseaseGeneID)
	}
}

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer, *[]string) {
	t.Helper()
	var out bytes.Buffer
	var requested []string
	factory := func(name string, _ domain.BackendsConfig, opts external.Options) (domain.Runner, error) {
		requested = append(requested, name)
		require.NotNil(t, opts.Genes)
		return fakeRunner{}, nil
	}
	c := NewCLI(
		WithOutput(&out, io.Discard),
		WithLogger(quietLogger()),
		WithRunnerFactory(factory),
	)
	return c, &out, &requested
}

func TestCLI_HelpAndUnknownCommand(t *testing.T) {
	c, out, _ := newTestCLI(t)

	require.NoError(t, c.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "shootout <command>")

	err := c.Run(context.Background(), []string{"frobnicate"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestCLI_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"dataset without subcommand", []string{"dataset"}},
		{"unknown dataset subcommand", []string{"dataset", "shuffle"}},
		{"head without dataset", []string{"dataset", "head"}},
		{"simulate without output", []string{"dataset", "simulate", "cases"}},
		{"benchmark missing args", []string{"benchmark", "exomiser", "in.json"}},
		{"report without input", []string{"report"}},
		{"report with file and run", []string{"report", "out.json", "--run", "x"}},
		{"runs without list", []string{"runs"}},
		{"config without subcommand", []string{"config"}},
		{"unknown flag", []string{"dataset", "list", "--no-such-flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestCLI(t)
			err := c.Run(context.Background(), tt.args)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestCLI_DatasetListAndHead(t *testing.T) {
	dir := setupDataDir(t)
	c, out, _ := newTestCLI(t)

	require.NoError(t, c.Run(context.Background(), []string{"dataset", "list", "--data-dir", dir}))
	assert.Equal(t, "cases\n", out.String())

	out.Reset()
	require.NoError(t, c.Run(context.Background(), []string{"dataset", "head", "cases", "--data-dir", dir, "--count", "2"}))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var first domain.Case
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "c1", first.Name)
	assert.NotContains(t, lines[0], "\n  ", "one compact object per line")
}

func TestCLI_DatasetSimulate(t *testing.T) {
	dir := setupDataDir(t)
	outPath := filepath.Join(dir, "out", "sim.json")
	c, _, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{
		"dataset", "simulate", "cases", outPath,
		"--data-dir", dir, "--case-count", "3", "--candidate-genes-count", "3", "--seed", "7",
	})
	require.NoError(t, err)

	simulated, err := dataset.LoadCases(outPath)
	require.NoError(t, err)
	require.Len(t, simulated, 3)
	for _, kase := range simulated {
		assert.Len(t, kase.CandidateGeneIDs, 3)
		assert.NotContains(t, kase.CandidateGeneIDs, kase.DiseaseGeneID)
	}
}

func TestCLI_DatasetSimulate_InvalidCount(t *testing.T) {
	dir := setupDataDir(t)
	c, _, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{
		"dataset", "simulate", "cases", filepath.Join(dir, "sim.json"), "--data-dir", dir, "--case-count", "0",
	})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "simulation.case_count", cfgErr.Field)
}

func TestCLI_DatasetConvertTSV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cases.tsv")
	out := filepath.Join(dir, "cases.json")
	rows := "p1\tOMIM:100\tEntrez:1\tHP:0000001,HP:0000002\n" +
		"p2\tOMIM:200\tENSG000001\tHP:0000003\n"
	require.NoError(t, os.WriteFile(in, []byte(rows), 0644))
	c, _, _ := newTestCLI(t)

	require.NoError(t, c.Run(context.Background(), []string{"dataset", "convert-tsv", in, out, "--data-dir", dir}))

	cases, err := dataset.LoadCases(out)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "p1", cases[0].Name)
}

func TestCLI_BenchmarkAndReport(t *testing.T) {
	dir := setupDataDir(t)
	resultsPath := filepath.Join(dir, "results.json")
	dbPath := filepath.Join(dir, "results.db")
	c, out, requested := newTestCLI(t)
	ctx := context.Background()

	err := c.Run(ctx, []string{
		"benchmark", "exomiser", filepath.Join(dir, "cases.json"), resultsPath,
		"--data-dir", dir, "--results-db", dbPath, "--top-n", "3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"exomiser"}, *requested)

	histogram := out.String()
	assert.Contains(t, histogram, "      1:    1  #")
	assert.Contains(t, histogram, "   4-..:    0")
	assert.Contains(t, histogram, "  mssng:    1  #")
	assert.Contains(t, histogram, "skipped (lookup): 1")

	outcomes, err := dataset.LoadOutcomes(resultsPath)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Nil(t, outcomes[1].Rank)

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"report", resultsPath, "--top-n", "3", "--summary=false"}))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Len(t, lines, 5, "top_n lines plus overflow and missing")
	assert.True(t, strings.HasPrefix(histogram, out.String()), "report re-renders the same histogram")

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"runs", "list", "--results-db", dbPath}))
	listing := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, listing, 2)
	fields := strings.Fields(listing[1])
	runID := fields[0]
	assert.Equal(t, "fake", fields[1])

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"report", "--run", runID, "--results-db", dbPath, "--top-n", "3"}))
	assert.Equal(t, histogram, out.String(), "a recorded run renders like the live one")

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"runs", "export", runID, "--results-db", dbPath}))
	var export results.RunExport
	require.NoError(t, json.Unmarshal(out.Bytes(), &export))
	assert.Equal(t, runID, export.Run.ID)
	assert.Equal(t, 3, export.Run.Total)
	assert.Len(t, export.Outcomes, 2)
}

func TestCLI_BenchmarkUnknownBackend(t *testing.T) {
	dir := setupDataDir(t)
	var out bytes.Buffer
	c := NewCLI(WithOutput(&out, io.Discard), WithLogger(quietLogger()))

	err := c.Run(context.Background(), []string{
		"benchmark", "nope", filepath.Join(dir, "cases.json"), filepath.Join(dir, "r.json"), "--data-dir", dir,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.NoFileExists(t, filepath.Join(dir, "r.json"))
}

func TestCLI_ReportRunRequiresDatabase(t *testing.T) {
	c, _, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{"report", "--run", "abc", "--data-dir", t.TempDir()})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "results_db", cfgErr.Field)
}

func TestCLI_ConfigShowAndValidate(t *testing.T) {
	dir := t.TempDir()
	c, out, _ := newTestCLI(t)

	require.NoError(t, c.Run(context.Background(), []string{"config", "validate", "--data-dir", dir}))
	assert.Contains(t, out.String(), "Configuration is valid")

	out.Reset()
	require.NoError(t, c.Run(context.Background(), []string{"config", "show", "--data-dir", dir, "--log-level", "debug"}))
	assert.Contains(t, out.String(), "data_dir: "+dir)
	assert.Contains(t, out.String(), "level: debug")
	assert.Contains(t, out.String(), "algorithm: hiphive")

	err := c.Run(context.Background(), []string{"config", "validate", "--log-level", "chatty"})
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "logging.level", cfgErr.Field)
}

// cancellingRunner ranks the first case and cancels the batch on the second.
type cancellingRunner struct {
	cancel context.CancelFunc
	calls  int
}

func (r *cancellingRunner) Name() string { return "cancelling" }

func (r *cancellingRunner) RunRanking(ctx context.Context, c domain.Case) (*domain.Outcome, error) {
	r.calls++
	if r.calls > 1 {
		r.cancel()
		return nil, ctx.Err()
	}
	return domain.RankOf(c, []string{c.DiseaseGeneID}), nil
}

func TestCLI_BenchmarkInterruptedKeepsPartialResults(t *testing.T) {
	dir := setupDataDir(t)
	resultsPath := filepath.Join(dir, "results.json")
	dbPath := filepath.Join(dir, "results.db")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	runner := &cancellingRunner{cancel: cancel}
	c := NewCLI(
		WithOutput(&out, io.Discard),
		WithLogger(quietLogger()),
		WithRunnerFactory(func(string, domain.BackendsConfig, external.Options) (domain.Runner, error) {
			return runner, nil
		}),
	)

	err := c.Run(ctx, []string{
		"benchmark", "amelie", filepath.Join(dir, "cases.json"), resultsPath,
		"--data-dir", dir, "--results-db", dbPath, "--top-n", "3",
	})
	require.ErrorIs(t, err, context.Canceled)

	outcomes, err := dataset.LoadOutcomes(resultsPath)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Contains(t, out.String(), "      1:    1  #", "partial histogram is printed")

	store, err := results.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].FinishedAt.IsZero())
	assert.Equal(t, 1, runs[0].Total)
}
