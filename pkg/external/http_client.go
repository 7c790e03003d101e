package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/gene-ranking-shootout/internal/domain"
)

// maxErrorBody bounds how much of an error response is quoted in errors.
const maxErrorBody = 256

// httpBackend carries the transport shared by backends reached over HTTP.
type httpBackend struct {
	name       string
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *ResponseCache
	logger     *logrus.Logger
}

func newHTTPBackend(name string, config domain.HTTPBackendConfig, breaker domain.CircuitBreakerConfig, cache *ResponseCache, logger *logrus.Logger) *httpBackend {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 3
	}

	return &httpBackend{
		name:    name,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   newCircuitBreaker(name, breaker, logger),
		cache:     cache,
		logger:    logger,
	}
}

// fetch performs a request and hands the response body to decode. Responses
// are served from the cache when possible and only cached once decode
// accepts them.
func (b *httpBackend) fetch(ctx context.Context, key string, newRequest func(ctx context.Context) (*http.Request, error), decode func(body []byte) error) error {
	if body, ok := b.cache.Get(key); ok {
		b.logger.WithFields(logrus.Fields{
			"backend": b.name,
			"key":     key,
		}).Debug("Serving response from cache")
		return decode(body)
	}

	if err := b.rateLimit.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "gene-ranking-shootout/1.0")

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), maxErrorBody))
		}
		return body, nil
	})
	if err != nil {
		return err
	}

	body := result.([]byte)
	if err := decode(body); err != nil {
		return err
	}
	b.cache.Add(key, body)
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
