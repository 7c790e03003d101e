package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gene-ranking-shootout/internal/dataset"
	"github.com/gene-ranking-shootout/internal/domain"
	"github.com/gene-ranking-shootout/internal/service"
)

func (c *CLI) runDataset(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.errOut, "Usage: shootout dataset <list|head|simulate|convert-tsv> [options]")
		return fmt.Errorf("%w: missing dataset command", ErrUsage)
	}

	switch args[0] {
	case "list":
		return c.datasetList(args[1:])
	case "head":
		return c.datasetHead(args[1:])
	case "simulate":
		return c.datasetSimulate(args[1:])
	case "convert-tsv":
		return c.datasetConvertTSV(args[1:])
	default:
		return fmt.Errorf("%w: unknown dataset command %q", ErrUsage, args[0])
	}
}

// datasetList prints the names of the datasets in the data directory.
func (c *CLI) datasetList(args []string) error {
	flags := c.newFlagSet("dataset list")
	if _, err := c.parse(flags, args, 0, 0); err != nil {
		return err
	}
	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	names, err := dataset.Catalog{Dir: s.config.DataDir}.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(c.out, name)
	}
	return nil
}

// datasetHead prints the first cases of a dataset, one JSON object per line.
func (c *CLI) datasetHead(args []string) error {
	flags := c.newFlagSet("dataset head <dataset>")
	count := flags.Int("count", 10, "number of cases to print")
	positional, err := c.parse(flags, args, 1, 1)
	if err != nil {
		return err
	}
	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	cases, err := dataset.Catalog{Dir: s.config.DataDir}.Load(positional[0])
	if err != nil {
		return err
	}
	if *count >= 0 && *count < len(cases) {
		cases = cases[:*count]
	}
	for _, kase := range cases {
		line, err := json.Marshal(kase)
		if err != nil {
			return fmt.Errorf("failed to encode case %s: %w", kase.Name, err)
		}
		fmt.Fprintln(c.out, string(line))
	}
	return nil
}

// datasetSimulate merges the given datasets and writes simulated cases.
func (c *CLI) datasetSimulate(args []string) error {
	flags := c.newFlagSet("dataset simulate <dataset>... <out_json>")
	flags.Int64("seed", 42, "random seed")
	flags.Int("case-count", 10, "number of cases to simulate")
	flags.Int("candidate-genes-count", 19, "number of candidate genes per case")
	flags.String("gene-counts", "", "gene frequency table (default <data-dir>/gnomad_counts.tsv)")
	positional, err := c.parse(flags, args, 2, -1)
	if err != nil {
		return err
	}
	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	names, outPath := positional[:len(positional)-1], positional[len(positional)-1]
	catalog := dataset.Catalog{Dir: s.config.DataDir}

	s.logger.Info("Loading data")
	corpora := make([][]domain.Case, 0, len(names))
	for _, name := range names {
		cases, err := catalog.Load(name)
		if err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{"dataset": name, "cases": len(cases)}).Info("Loaded dataset")
		corpora = append(corpora, cases)
	}
	corpus, duplicates := dataset.Merge(corpora...)
	if duplicates > 0 {
		s.logger.WithField("duplicates", duplicates).Warn("Skipped cases with duplicate names")
	}

	genes, err := dataset.LoadGeneTable(s.config.GeneCountsPath)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"cases": len(corpus),
		"genes": genes.Len(),
	}).Info("Simulating cases")

	simulated, err := service.NewSimulator(s.logger).Simulate(corpus, genes.Records(), s.config.Simulation)
	if err != nil {
		return err
	}
	if err := dataset.SaveJSON(outPath, simulated); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"cases": len(simulated), "path": outPath}).Info("Wrote simulated cases")
	return nil
}

// datasetConvertTSV converts a headerless TSV case table to JSON.
func (c *CLI) datasetConvertTSV(args []string) error {
	flags := c.newFlagSet("dataset convert-tsv <tsv_in> <json_out>")
	prefix := flags.String("gene-prefix", dataset.DefaultGenePrefix, "required prefix of disease gene IDs")
	positional, err := c.parse(flags, args, 2, 2)
	if err != nil {
		return err
	}
	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	in, err := os.Open(positional[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", positional[0], err)
	}
	defer in.Close()

	s.logger.WithFields(logrus.Fields{"from": positional[0], "to": positional[1]}).Info("Converting TSV to JSON")
	cases, stats, err := dataset.TSVConverter{GenePrefix: *prefix}.Convert(in)
	if err != nil {
		return err
	}
	if err := dataset.SaveJSON(positional[1], cases); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"rows":      stats.Rows,
		"converted": stats.Converted,
		"skipped":   stats.Skipped,
	}).Info("Wrote cases")
	return nil
}
