package external

import (
	"crypto/sha256"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is used when no cache size is configured.
const DefaultCacheSize = 512

// ResponseCache keeps raw backend response bodies keyed by request.
// A nil *ResponseCache is valid and never hits.
type ResponseCache struct {
	entries *lru.Cache[string, []byte]
}

// NewResponseCache creates a cache holding up to size responses.
func NewResponseCache(size int) (*ResponseCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}
	return &ResponseCache{entries: entries}, nil
}

// Get returns a cached response body.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

// Add stores a response body.
func (c *ResponseCache) Add(key string, body []byte) {
	if c == nil {
		return
	}
	c.entries.Add(key, body)
}

// Len returns the number of cached responses.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// cacheKey derives a compact key from a backend name and request parts.
func cacheKey(backend string, parts ...string) string {
	data := strings.Join(parts, "\x00")
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%s:%x", backend, hash[:8]) // first 8 bytes of hash
}
