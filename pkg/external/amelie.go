package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gene-ranking-shootout/internal/domain"
)

// DefaultAmelieURL is the public AMELIE gene list API.
const DefaultAmelieURL = "https://amelie.stanford.edu/api/gene_list_api/"

// AmelieRunner ranks genes with the AMELIE web service.
type AmelieRunner struct {
	*httpBackend
	genes domain.GeneLookup
}

// NewAmelieRunner creates a runner against the AMELIE API.
func NewAmelieRunner(config domain.HTTPBackendConfig, breaker domain.CircuitBreakerConfig, opts Options) (*AmelieRunner, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultAmelieURL
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "backends.amelie.base_url", err.Error())
	}

	return &AmelieRunner{
		httpBackend: newHTTPBackend(BackendAmelie, config, breaker, opts.Cache, opts.Logger),
		genes:       opts.Genes,
	}, nil
}

// Name returns the backend name.
func (r *AmelieRunner) Name() string {
	return BackendAmelie
}

// RunRanking posts the case's phenotypes and genes as a form.
func (r *AmelieRunner) RunRanking(ctx context.Context, c domain.Case) (*domain.Outcome, error) {
	symbols, err := querySymbols(r.genes, c)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("patientName", "query")
	form.Set("phenotypes", strings.Join(c.HPOTerms, ","))
	form.Set("genes", strings.Join(symbols, ","))
	payload := form.Encode()

	var ranked []string
	err = r.fetch(ctx, cacheKey(r.name, r.baseURL, payload),
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, strings.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req, nil
		},
		func(body []byte) error {
			symbols, err := decodeAmelie(body)
			if err != nil {
				return err
			}
			ranked = symbols
			return nil
		},
	)
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}

	ids, err := r.genes.EntrezForSymbols(ranked)
	if err != nil {
		return nil, err
	}
	return rankResult(r.logger, r.name, c, ids), nil
}

// decodeAmelie extracts the gene symbols from AMELIE's row-array response.
// The first element of each row is the symbol.
func decodeAmelie(body []byte) ([]string, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response %q: %w", truncate(string(body), maxErrorBody), err)
	}

	symbols := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			return nil, fmt.Errorf("empty row %d in response", i)
		}
		var symbol string
		if err := json.Unmarshal(row[0], &symbol); err != nil {
			return nil, fmt.Errorf("row %d has no gene symbol: %w", i, err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}
