package domain

import (
	"errors"
	"fmt"
)

// Error kinds for configuration failures
var (
	ErrInsufficientData       = errors.New("insufficient data")
	ErrDegenerateDistribution = errors.New("degenerate distribution")
	ErrInvalidRequest         = errors.New("invalid request")
)

// ErrGeneNotFound is matched by every LookupError.
var ErrGeneNotFound = errors.New("gene not found")

// ConfigurationError is fatal and aborts a run before any simulation work
type ConfigurationError struct {
	Kind    error  `json:"-"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s: %s", e.Kind, e.Field, e.Message)
}

// Unwrap returns the error kind so callers can use errors.Is
func (e *ConfigurationError) Unwrap() error {
	return e.Kind
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(kind error, field, message string) *ConfigurationError {
	return &ConfigurationError{
		Kind:    kind,
		Field:   field,
		Message: message,
	}
}

// Lookup namespaces
const (
	NamespaceEntrez = "entrez_id"
	NamespaceSymbol = "gene_symbol"
)

// LookupError reports a gene ID or symbol missing from the frequency table
type LookupError struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

// Error implements the error interface
func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found in gene table", e.Namespace, e.Key)
}

// Unwrap allows errors.Is(err, ErrGeneNotFound)
func (e *LookupError) Unwrap() error {
	return ErrGeneNotFound
}

// NewLookupError creates a new LookupError
func NewLookupError(namespace, key string) *LookupError {
	return &LookupError{Namespace: namespace, Key: key}
}

// BackendError wraps a failure talking to a ranking backend for a single case
type BackendError struct {
	Backend string `json:"backend"`
	Case    string `json:"case"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed for case %s: %v", e.Backend, e.Case, e.Err)
}

// Unwrap returns the underlying cause
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a new BackendError
func NewBackendError(backend, caseName string, err error) *BackendError {
	return &BackendError{Backend: backend, Case: caseName, Err: err}
}

// Skip reasons reported by the benchmark driver
const (
	SkipLookup  = "lookup"
	SkipBackend = "backend"
	SkipOther   = "other"
)

// SkipReason classifies a per-case error for reporting.
func SkipReason(err error) string {
	var lookupErr *LookupError
	var backendErr *BackendError
	switch {
	case errors.As(err, &lookupErr):
		return SkipLookup
	case errors.As(err, &backendErr):
		return SkipBackend
	default:
		return SkipOther
	}
}
