package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/gene-ranking-shootout/internal/dataset"
	"github.com/gene-ranking-shootout/internal/domain"
	"github.com/gene-ranking-shootout/internal/report"
	"github.com/gene-ranking-shootout/internal/results"
	"github.com/gene-ranking-shootout/internal/service"
	"github.com/gene-ranking-shootout/pkg/external"
)

// addReportFlags registers the histogram rendering flags.
func addReportFlags(flags *pflag.FlagSet) {
	flags.Int("top-n", 10, "number of individual rank buckets")
	flags.Int("total-width", 40, "width of the longest histogram bar")
}

// runBenchmark ranks every simulated case with one backend, writes the
// outcomes and prints the rank histogram.
func (c *CLI) runBenchmark(ctx context.Context, args []string) error {
	flags := c.newFlagSet("benchmark <backend> <simulated_json> <results_json>")
	addReportFlags(flags)
	flags.String("base-url", "", "base URL of an HTTP backend")
	flags.String("algorithm", "", "Exomiser prioritiser ("+strings.Join(external.ExomiserAlgorithms(), ", ")+")")
	flags.String("container-runtime", "", "container runtime for image backends")
	flags.String("gene-counts", "", "gene table used for symbol lookups (default <data-dir>/gnomad_counts.tsv)")
	flags.String("results-db", "", "SQLite database recording the run")
	flags.Int("progress-every", 25, "log progress every N cases")
	positional, err := c.parse(flags, args, 3, 3)
	if err != nil {
		return err
	}
	backend, inPath, outPath := positional[0], positional[1], positional[2]

	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.manager.BindBackendURL(flags, strings.ReplaceAll(backend, "-", "_")); err != nil {
		return fmt.Errorf("failed to bind --base-url: %w", err)
	}
	cfg := s.manager.GetConfig()

	genes, err := dataset.LoadGeneTable(cfg.GeneCountsPath)
	if err != nil {
		return err
	}
	cases, err := dataset.LoadCases(inPath)
	if err != nil {
		return err
	}

	backends := s.manager.GetBackendsConfig()
	cache, err := external.NewResponseCache(backends.CacheSize)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(backend, *backends, external.Options{
		Genes:    genes,
		Commands: c.commands,
		Cache:    cache,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}

	var store results.Store
	if cfg.ResultsDB != "" {
		sqlite, err := results.NewSQLiteStore(cfg.ResultsDB)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		store = sqlite
	}

	summary, runErr := service.NewBenchmark(runner, store, cfg.Benchmark.ProgressEvery, s.logger).Run(ctx, cases, inPath)
	if summary == nil {
		return runErr
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	// An interrupted run still writes and reports what it ranked.
	s.logger.WithFields(logrus.Fields{
		"path":             outPath,
		"outcomes":         len(summary.Outcomes),
		"cached_responses": cache.Len(),
	}).Info("Writing results")
	if err := dataset.SaveJSON(outPath, summary.Outcomes); err != nil {
		return err
	}
	if err := c.printReport(cfg.Report, summary.Outcomes, summary.Skipped); err != nil {
		return err
	}
	return runErr
}

// runReport renders the histogram of a results file or a recorded run.
func (c *CLI) runReport(ctx context.Context, args []string) error {
	flags := c.newFlagSet("report <results_json> | report --run <id>")
	addReportFlags(flags)
	runID := flags.String("run", "", "render a run recorded in the results database")
	flags.String("results-db", "", "SQLite database holding recorded runs")
	withSummary := flags.Bool("summary", true, "print summary statistics below the histogram")
	positional, err := c.parse(flags, args, 0, 1)
	if err != nil {
		return err
	}
	if (*runID == "") == (len(positional) == 0) {
		flags.Usage()
		return fmt.Errorf("%w: report takes either a results file or --run", ErrUsage)
	}

	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	if *runID == "" {
		outcomes, err := dataset.LoadOutcomes(positional[0])
		if err != nil {
			return err
		}
		return c.renderReport(*withSummary, s.config.Report, outcomes, nil)
	}

	if s.config.ResultsDB == "" {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "results_db", "must be set to read recorded runs")
	}
	store, err := results.NewSQLiteStore(s.config.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, *runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", results.ErrRunNotFound, *runID)
	}
	outcomes, err := store.Outcomes(ctx, run.ID)
	if err != nil {
		return err
	}
	return c.renderReport(*withSummary, s.config.Report, outcomes, run.SkipReasons)
}

func (c *CLI) renderReport(withSummary bool, cfg domain.ReportConfig, outcomes []domain.Outcome, skipped map[string]int) error {
	if !withSummary {
		_, err := fmt.Fprint(c.out, report.Render(outcomes, cfg.TopN, cfg.TotalWidth))
		return err
	}
	return c.printReport(cfg, outcomes, skipped)
}

// printReport writes the histogram followed by the summary statistics.
func (c *CLI) printReport(cfg domain.ReportConfig, outcomes []domain.Outcome, skipped map[string]int) error {
	renderer := report.NewRenderer(cfg.TopN, cfg.TotalWidth, c.out)
	if err := renderer.Render(outcomes); err != nil {
		return err
	}
	summary, err := report.Summarize(outcomes, skipped)
	if err != nil {
		return err
	}
	return renderer.RenderSummary(summary)
}

// runRuns lists recorded runs or exports one of them as JSON.
func (c *CLI) runRuns(ctx context.Context, args []string) error {
	if len(args) == 0 || (args[0] != "list" && args[0] != "export") {
		fmt.Fprintln(c.errOut, "Usage: shootout runs list [--limit N] [--offset N] | runs export <id>")
		return fmt.Errorf("%w: expected runs list or runs export", ErrUsage)
	}

	flags := c.newFlagSet("runs " + args[0])
	flags.String("results-db", "", "SQLite database holding recorded runs")
	limit := flags.Int("limit", 20, "maximum number of runs")
	offset := flags.Int("offset", 0, "number of runs to skip")
	wantArgs := 0
	if args[0] == "export" {
		wantArgs = 1
	}
	positional, err := c.parse(flags, args[1:], wantArgs, wantArgs)
	if err != nil {
		return err
	}
	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	if s.config.ResultsDB == "" {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "results_db", "must be set to read recorded runs")
	}
	store, err := results.NewSQLiteStore(s.config.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if args[0] == "export" {
		return store.ExportJSON(ctx, positional[0], c.out)
	}

	runs, err := store.ListRuns(ctx, *limit, *offset)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBACKEND\tSTARTED\tTOTAL\tSKIPPED\tINPUT")
	for _, run := range runs {
		started := run.StartedAt.Format("2006-01-02 15:04:05")
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", run.ID, run.Backend, started, run.Total, run.Skipped, run.InputPath)
	}
	return w.Flush()
}
