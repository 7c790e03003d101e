package domain

import (
	"context"
)

// Runner obtains a ranking for a single case from one backend.
// A non-nil error means the case is skipped.
type Runner interface {
	Name() string
	RunRanking(ctx context.Context, c Case) (*Outcome, error)
}

// GeneLookup translates between entrez IDs and gene symbols
type GeneLookup interface {
	SymbolForEntrez(entrezID string) (string, error)
	EntrezForSymbol(symbol string) (string, error)
	SymbolsForEntrez(entrezIDs []string) ([]string, error)
	EntrezForSymbols(symbols []string) ([]string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetBackendsConfig() *BackendsConfig
	Validate() error
}
