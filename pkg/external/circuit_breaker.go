package external

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/gene-ranking-shootout/internal/domain"
)

// withBreakerDefaults fills unset circuit breaker settings.
func withBreakerDefaults(config domain.CircuitBreakerConfig) domain.CircuitBreakerConfig {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	return config
}

// newCircuitBreaker creates the breaker guarding one backend.
// It trips after FailureThreshold consecutive failures.
func newCircuitBreaker(name string, config domain.CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	config = withBreakerDefaults(config)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}
