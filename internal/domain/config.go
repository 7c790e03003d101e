package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	DataDir        string            `mapstructure:"data_dir"`
	GeneCountsPath string            `mapstructure:"gene_counts_path"`
	ResultsDB      string            `mapstructure:"results_db"`
	Simulation     SimulationRequest `mapstructure:"simulation"`
	Report         ReportConfig      `mapstructure:"report"`
	Benchmark      BenchmarkConfig   `mapstructure:"benchmark"`
	Backends       BackendsConfig    `mapstructure:"backends"`
	Logging        LoggingConfig     `mapstructure:"logging"`
}

// ReportConfig controls histogram rendering
type ReportConfig struct {
	TopN       int `mapstructure:"top_n"`
	TotalWidth int `mapstructure:"total_width"`
}

// BenchmarkConfig controls the batch driver
type BenchmarkConfig struct {
	ProgressEvery int `mapstructure:"progress_every"`
}

// BackendsConfig represents configuration of all ranking backends
type BackendsConfig struct {
	ContainerRuntime string               `mapstructure:"container_runtime"`
	CacheSize        int                  `mapstructure:"cache_size"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	VarFishPhenix    HTTPBackendConfig    `mapstructure:"varfish_phenix"`
	Amelie           HTTPBackendConfig    `mapstructure:"amelie"`
	Exomiser         ExomiserConfig       `mapstructure:"exomiser"`
	Phen2Gene        ContainerConfig      `mapstructure:"phen2gene"`
	CADA             ContainerConfig      `mapstructure:"cada"`
}

// HTTPBackendConfig represents configuration of a backend reached over HTTP
type HTTPBackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per second
}

// ExomiserConfig represents Exomiser REST configuration
type ExomiserConfig struct {
	HTTPBackendConfig `mapstructure:",squash"`
	Algorithm         string `mapstructure:"algorithm"`
}

// ContainerConfig represents a backend executed as a container image
type ContainerConfig struct {
	Image string `mapstructure:"image"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
