package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gene-ranking-shootout/internal/domain"
)

// VarFishPhenixRunner ranks genes with the Phenix endpoint of varfish-server-worker.
type VarFishPhenixRunner struct {
	*httpBackend
	genes domain.GeneLookup
}

// varFishResponse is the JSON returned by the Phenix endpoint
type varFishResponse struct {
	Result []struct {
		GeneSymbol string  `json:"gene_symbol"`
		Score      float64 `json:"score"`
	} `json:"result"`
}

// NewVarFishPhenixRunner creates a runner against the given endpoint.
func NewVarFishPhenixRunner(config domain.HTTPBackendConfig, breaker domain.CircuitBreakerConfig, opts Options) (*VarFishPhenixRunner, error) {
	if config.BaseURL == "" {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "backends.varfish_phenix.base_url", "must be set")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "backends.varfish_phenix.base_url", err.Error())
	}

	return &VarFishPhenixRunner{
		httpBackend: newHTTPBackend(BackendVarFishPhenix, config, breaker, opts.Cache, opts.Logger),
		genes:       opts.Genes,
	}, nil
}

// Name returns the backend name.
func (r *VarFishPhenixRunner) Name() string {
	return BackendVarFishPhenix
}

// RunRanking queries Phenix with the case's terms and genes.
func (r *VarFishPhenixRunner) RunRanking(ctx context.Context, c domain.Case) (*domain.Outcome, error) {
	symbols, err := querySymbols(r.genes, c)
	if err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(r.baseURL)
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}
	params := endpoint.Query()
	params.Set("terms", strings.Join(c.HPOTerms, ","))
	params.Set("gene_symbols", strings.Join(symbols, ","))
	endpoint.RawQuery = params.Encode()
	requestURL := endpoint.String()

	var response varFishResponse
	err = r.fetch(ctx, cacheKey(r.name, requestURL),
		func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		},
		func(body []byte) error {
			if err := json.Unmarshal(body, &response); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}

	ranked := make([]string, 0, len(response.Result))
	for _, entry := range response.Result {
		ranked = append(ranked, entry.GeneSymbol)
	}
	ids, err := r.genes.EntrezForSymbols(ranked)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"backend": r.name,
		"case":    c.Name,
		"genes":   len(ids),
	}).Debug("Ranking received")

	return rankResult(r.logger, r.name, c, ids), nil
}
