// Package cli implements the shootout command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/gene-ranking-shootout/internal/config"
	"github.com/gene-ranking-shootout/internal/domain"
	"github.com/gene-ranking-shootout/internal/logging"
	"github.com/gene-ranking-shootout/pkg/external"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage error")

// RunnerFactory creates a ranking backend by name.
type RunnerFactory func(name string, config domain.BackendsConfig, opts external.Options) (domain.Runner, error)

// CLI dispatches shootout subcommands.
type CLI struct {
	out       io.Writer
	errOut    io.Writer
	logger    *logrus.Logger
	newRunner RunnerFactory
	commands  external.CommandRunner
}

// Option configures a CLI.
type Option func(*CLI)

// WithOutput redirects command output and usage messages.
func WithOutput(out, errOut io.Writer) Option {
	return func(c *CLI) {
		c.out = out
		c.errOut = errOut
	}
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *CLI) {
		c.logger = logger
	}
}

// WithRunnerFactory replaces external.NewRunner.
func WithRunnerFactory(factory RunnerFactory) Option {
	return func(c *CLI) {
		c.newRunner = factory
	}
}

// WithCommandRunner replaces the runner used to start backend containers.
func WithCommandRunner(commands external.CommandRunner) Option {
	return func(c *CLI) {
		c.commands = commands
	}
}

// NewCLI creates a new CLI instance.
func NewCLI(opts ...Option) *CLI {
	c := &CLI{
		out:       os.Stdout,
		errOut:    os.Stderr,
		newRunner: external.NewRunner,
		commands:  external.ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the command given by args.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "dataset":
		return c.runDataset(args[1:])
	case "benchmark":
		return c.runBenchmark(ctx, args[1:])
	case "report":
		return c.runReport(ctx, args[1:])
	case "runs":
		return c.runRuns(ctx, args[1:])
	case "config":
		return c.runConfig(args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.errOut, "Unknown command: %s\n\n", args[0])
		c.showHelp()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

// showHelp displays usage information.
func (c *CLI) showHelp() error {
	help := `
Gene Ranking Shootout

Usage:
  shootout <command> [options]

Commands:
  dataset list                                  List datasets in the data directory
  dataset head <dataset> [--count N]            Print the first cases of a dataset
  dataset simulate <dataset>... <out_json>      Simulate candidate gene sets
  dataset convert-tsv <tsv_in> <json_out>       Convert a TSV case table to JSON
  benchmark <backend> <simulated_json> <results_json>
                                                Rank simulated cases with a backend
  report <results_json> | report --run <id>     Print the rank histogram of a run
  runs list                                     List recorded runs
  runs export <id>                              Print a recorded run as JSON
  config show | config validate                 Show or check the effective configuration

Backends:
  amelie, cada, exomiser, phen2gene, varfish-phenix

Examples:
  # Simulate 100 cases with 19 candidates each
  shootout dataset simulate hpo_annotations out/sim.json --case-count 100

  # Benchmark a local Exomiser with the phenix algorithm
  shootout benchmark exomiser out/sim.json out/exomiser.json --algorithm phenix

  # Re-render a recorded run
  shootout report --run 4b7c0f0e-9a4e-4f45-8f36-0f1c2d3e4a5b --results-db data/results.db

Configuration is read from shootout.yaml, SHOOTOUT_* environment variables and flags.
`
	fmt.Fprintln(c.out, help)
	return nil
}

// session holds what every command needs once its flags are parsed.
type session struct {
	manager *config.Manager
	config  *domain.Config
	logger  *logrus.Logger
	close   func() error
}

// newFlagSet creates a flag set with the flags shared by all commands.
func (c *CLI) newFlagSet(usage string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(usage, pflag.ContinueOnError)
	flags.SetOutput(c.errOut)
	flags.Usage = func() {
		fmt.Fprintf(c.errOut, "Usage: shootout %s [options]\n\nOptions:\n", usage)
		flags.PrintDefaults()
	}
	flags.String("config", "", "path to a shootout.yaml configuration file")
	flags.String("data-dir", "", "directory holding datasets and the gene counts table")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	return flags
}

// parse parses args and checks the positional argument count; maxArgs < 0
// means unbounded.
func (c *CLI) parse(flags *pflag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	positional := flags.Args()
	if len(positional) < minArgs || (maxArgs >= 0 && len(positional) > maxArgs) {
		flags.Usage()
		return nil, fmt.Errorf("%w: %s: unexpected number of arguments", ErrUsage, flags.Name())
	}
	return positional, nil
}

// open loads and validates configuration and builds the logger.
func (c *CLI) open(flags *pflag.FlagSet) (*session, error) {
	manager, err := config.NewManager(flags)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, err
	}

	s := &session{
		manager: manager,
		config:  manager.GetConfig(),
		logger:  c.logger,
		close:   func() error { return nil },
	}
	if s.logger == nil {
		logger, closeFn, err := logging.New(s.config.Logging)
		if err != nil {
			return nil, err
		}
		s.logger = logger
		s.close = closeFn
	}
	return s, nil
}
