// Package config loads shootout configuration from defaults, an optional
// YAML file, SHOOTOUT_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gene-ranking-shootout/internal/domain"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SHOOTOUT"

// DefaultGeneCountsFile is the gene frequency table looked up in data_dir.
const DefaultGeneCountsFile = "gnomad_counts.tsv"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"data-dir":              "data_dir",
	"gene-counts":           "gene_counts_path",
	"results-db":            "results_db",
	"seed":                  "simulation.seed",
	"case-count":            "simulation.case_count",
	"candidate-genes-count": "simulation.candidate_genes_count",
	"top-n":                 "report.top_n",
	"total-width":           "report.total_width",
	"progress-every":        "benchmark.progress_every",
	"container-runtime":     "backends.container_runtime",
	"algorithm":             "backends.exomiser.algorithm",
	"log-level":             "logging.level",
	"log-format":            "logging.format",
}

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// NewManager creates a new configuration manager. flags may be nil; flags
// that were set on the command line take precedence over every other source.
func NewManager(flags *pflag.FlagSet) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.bindFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := m.loadConfig(flags); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) bindFlags(flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := m.v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

// BindBackendURL binds the --base-url flag to the base URL of one backend.
func (m *Manager) BindBackendURL(flags *pflag.FlagSet, backendKey string) error {
	if flags == nil {
		return nil
	}
	flag := flags.Lookup("base-url")
	if flag == nil || !flag.Changed {
		return nil
	}
	if err := m.v.BindPFlag("backends."+backendKey+".base_url", flag); err != nil {
		return err
	}
	return m.Reload()
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig(flags *pflag.FlagSet) error {
	v := m.v

	if flags != nil {
		if flag := flags.Lookup("config"); flag != nil && flag.Value.String() != "" {
			v.SetConfigFile(flag.Value.String())
		}
	}
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("shootout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "gene-ranking-shootout"))
		}
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.GeneCountsPath == "" {
		config.GeneCountsPath = filepath.Join(config.DataDir, DefaultGeneCountsFile)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	// Data defaults
	v.SetDefault("data_dir", "./data")
	v.SetDefault("gene_counts_path", "")
	v.SetDefault("results_db", "")

	// Simulation defaults
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.case_count", 10)
	v.SetDefault("simulation.candidate_genes_count", 19)

	// Report defaults
	v.SetDefault("report.top_n", 10)
	v.SetDefault("report.total_width", 40)
	v.SetDefault("benchmark.progress_every", 25)

	// Backend defaults
	v.SetDefault("backends.container_runtime", "podman")
	v.SetDefault("backends.cache_size", 512)

	v.SetDefault("backends.circuit_breaker.max_requests", 3)
	v.SetDefault("backends.circuit_breaker.interval", "30s")
	v.SetDefault("backends.circuit_breaker.timeout", "60s")
	v.SetDefault("backends.circuit_breaker.failure_threshold", 5)

	v.SetDefault("backends.varfish_phenix.base_url", "http://localhost:8081/-/hpo/sim/term-gene")
	v.SetDefault("backends.varfish_phenix.timeout", "30s")
	v.SetDefault("backends.varfish_phenix.rate_limit", 10)

	v.SetDefault("backends.amelie.base_url", "https://amelie.stanford.edu/api/gene_list_api/")
	v.SetDefault("backends.amelie.timeout", "120s")
	v.SetDefault("backends.amelie.rate_limit", 1)

	v.SetDefault("backends.exomiser.base_url", "http://localhost:8080")
	v.SetDefault("backends.exomiser.timeout", "60s")
	v.SetDefault("backends.exomiser.rate_limit", 10)
	v.SetDefault("backends.exomiser.algorithm", "hiphive")

	v.SetDefault("backends.phen2gene.image", "docker.io/genomicslab/phen2gene")
	v.SetDefault("backends.cada.image", "localhost/cada-for-shootout:latest")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetBackendsConfig returns backend configuration
func (m *Manager) GetBackendsConfig() *domain.BackendsConfig {
	return &m.config.Backends
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig(nil)
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.DataDir == "" {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "data_dir", "must be set")
	}
	if config.Simulation.CaseCount <= 0 {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "simulation.case_count",
			fmt.Sprintf("must be positive, got %d", config.Simulation.CaseCount))
	}
	if config.Simulation.CandidateGenesCount <= 0 {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "simulation.candidate_genes_count",
			fmt.Sprintf("must be positive, got %d", config.Simulation.CandidateGenesCount))
	}
	if config.Report.TopN <= 0 {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "report.top_n",
			fmt.Sprintf("must be positive, got %d", config.Report.TopN))
	}
	if config.Report.TotalWidth <= 0 {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "report.total_width",
			fmt.Sprintf("must be positive, got %d", config.Report.TotalWidth))
	}
	if config.Backends.CacheSize < 0 {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "backends.cache_size",
			fmt.Sprintf("must not be negative, got %d", config.Backends.CacheSize))
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "logging.level",
			fmt.Sprintf("invalid log level: %s", config.Logging.Level))
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return domain.NewConfigurationError(domain.ErrInvalidRequest, "logging.format",
			fmt.Sprintf("invalid log format: %s", config.Logging.Format))
	}

	return nil
}

// AllSettings returns the merged configuration keyed as in shootout.yaml.
func (m *Manager) AllSettings() map[string]any {
	return m.v.AllSettings()
}

// ConfigFileUsed returns the configuration file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}
