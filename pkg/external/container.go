package external

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"

	"github.com/gene-ranking-shootout/internal/domain"
)

// DefaultContainerRuntime runs container backends when none is configured.
const DefaultContainerRuntime = "podman"

// CommandRunner runs an external command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command, killing it when ctx is done.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// containerBackend runs one container per case against a scratch directory.
type containerBackend struct {
	name     string
	runtime  string
	image    string
	commands CommandRunner
	logger   *logrus.Logger
}

func newContainerBackend(name, runtime string, config domain.ContainerConfig, defaultImage string, opts Options) *containerBackend {
	if runtime == "" {
		runtime = DefaultContainerRuntime
	}
	image := config.Image
	if image == "" {
		image = defaultImage
	}
	return &containerBackend{
		name:     name,
		runtime:  runtime,
		image:    image,
		commands: opts.Commands,
		logger:   opts.Logger,
	}
}

// withWorkDir creates a scratch directory, passes it to fn and removes it afterwards.
func (b *containerBackend) withWorkDir(fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", "shootout-"+b.name+"-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}

// run starts the image with dir mounted at mount.
func (b *containerBackend) run(ctx context.Context, caseName, dir, mount string, args ...string) error {
	cmdArgs := append([]string{"run", "--rm", "-v", dir + ":" + mount, "-t", b.image}, args...)

	b.logger.WithFields(logrus.Fields{
		"backend": b.name,
		"case":    caseName,
		"runtime": b.runtime,
		"image":   b.image,
	}).Debug("Running container")

	output, err := b.commands.Run(ctx, b.runtime, cmdArgs...)
	if err != nil {
		return fmt.Errorf("%s run of %s failed: %w: %s", b.runtime, b.image, err, truncate(string(output), maxErrorBody))
	}
	return nil
}

// readTSV decodes a headed tab-separated file into out.
func readTSV(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeLines writes one entry per line without a trailing newline.
func writeLines(path string, lines []string) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}
