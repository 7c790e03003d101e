package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gene-ranking-shootout/internal/domain"
)

// DefaultExomiserAlgorithm is used when no algorithm is configured.
const DefaultExomiserAlgorithm = "hiphive"

type exomiserAlgorithm struct {
	prioritiser string
	params      []string
}

var exomiserAlgorithms = map[string]exomiserAlgorithm{
	"hiphive":       {prioritiser: "hiphive", params: []string{"human", "mouse", "fish", "ppi"}},
	"hiphive-human": {prioritiser: "hiphive", params: []string{"human"}},
	"hiphive-mouse": {prioritiser: "hiphive", params: []string{"human", "mouse"}},
	"phenix":        {prioritiser: "phenix"},
	"phive":         {prioritiser: "phive"},
}

// ExomiserAlgorithms returns the accepted algorithm names, sorted.
func ExomiserAlgorithms() []string {
	names := make([]string, 0, len(exomiserAlgorithms))
	for name := range exomiserAlgorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExomiserRunner ranks genes with the Exomiser prioritise REST API.
type ExomiserRunner struct {
	*httpBackend
	algorithm string
}

type exomiserRequest struct {
	Prioritiser       string   `json:"prioritiser"`
	PrioritiserParams string   `json:"prioritiserParams"`
	Phenotypes        []string `json:"phenotypes"`
	Genes             []string `json:"genes"`
}

type exomiserResponse struct {
	Results []struct {
		GeneID     int     `json:"geneId"`
		GeneSymbol string  `json:"geneSymbol"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// NewExomiserRunner creates a runner against an Exomiser server.
func NewExomiserRunner(config domain.ExomiserConfig, breaker domain.CircuitBreakerConfig, opts Options) (*ExomiserRunner, error) {
	if config.Algorithm == "" {
		config.Algorithm = DefaultExomiserAlgorithm
	}
	if _, ok := exomiserAlgorithms[config.Algorithm]; !ok {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "backends.exomiser.algorithm",
			fmt.Sprintf("invalid algorithm %q, must be one of %s", config.Algorithm, strings.Join(ExomiserAlgorithms(), ", ")))
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.BaseURL == "" {
		return nil, domain.NewConfigurationError(domain.ErrInvalidRequest, "backends.exomiser.base_url", "must be set")
	}

	return &ExomiserRunner{
		httpBackend: newHTTPBackend(BackendExomiser, config.HTTPBackendConfig, breaker, opts.Cache, opts.Logger),
		algorithm:   config.Algorithm,
	}, nil
}

// Name returns the backend name.
func (r *ExomiserRunner) Name() string {
	return BackendExomiser
}

// RunRanking posts the case's phenotypes and numeric gene IDs.
func (r *ExomiserRunner) RunRanking(ctx context.Context, c domain.Case) (*domain.Outcome, error) {
	algo := exomiserAlgorithms[r.algorithm]

	genes := make([]string, 0, len(c.CandidateGeneIDs)+1)
	for _, id := range c.CandidateGeneIDs {
		genes = append(genes, strings.TrimPrefix(id, EntrezPrefix))
	}
	genes = append(genes, strings.TrimPrefix(c.DiseaseGeneID, EntrezPrefix))

	payload, err := json.Marshal(exomiserRequest{
		Prioritiser:       algo.prioritiser,
		PrioritiserParams: strings.Join(algo.params, ","),
		Phenotypes:        c.HPOTerms,
		Genes:             genes,
	})
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}

	endpoint := r.baseURL + "/exomiser/api/prioritise/"

	var ranked []string
	err = r.fetch(ctx, cacheKey(r.name, endpoint, string(payload)),
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		},
		func(body []byte) error {
			var response exomiserResponse
			if err := json.Unmarshal(body, &response); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			ranked = make([]string, 0, len(response.Results))
			for _, entry := range response.Results {
				ranked = append(ranked, fmt.Sprintf("%s%d", EntrezPrefix, entry.GeneID))
			}
			return nil
		},
	)
	if err != nil {
		return nil, domain.NewBackendError(r.name, c.Name, err)
	}

	return rankResult(r.logger, r.name, c, ranked), nil
}
