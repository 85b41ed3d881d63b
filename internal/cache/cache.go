// Package cache memoizes analysis results by source content, so watch mode
// does not re-parse files whose bytes did not change.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/jstruct/internal/extractor"
)

// DefaultCapacity is the number of results kept when none is configured.
const DefaultCapacity = 4096

// Key returns the cache key for source bytes: the hex SHA-256 digest.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ResultCache is a bounded, concurrency-safe map from content key to
// analysis result. Cached results are shared and must not be modified.
type ResultCache struct {
	cache otter.Cache[string, *extractor.AnalysisResult]
}

// New creates a cache holding up to capacity results.
func New(capacity int) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c, err := otter.MustBuilder[string, *extractor.AnalysisResult](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}
	return &ResultCache{cache: c}, nil
}

// Get returns the result cached for key.
func (r *ResultCache) Get(key string) (*extractor.AnalysisResult, bool) {
	return r.cache.Get(key)
}

// Set stores result under key. Nil results are not cached.
func (r *ResultCache) Set(key string, result *extractor.AnalysisResult) {
	if result == nil {
		return
	}
	r.cache.Set(key, result)
}

// Delete drops key.
func (r *ResultCache) Delete(key string) {
	r.cache.Delete(key)
}

// Stats returns the hit and miss counts since creation.
func (r *ResultCache) Stats() (hits, misses int64) {
	s := r.cache.Stats()
	return s.Hits(), s.Misses()
}

// Close releases the cache's background resources.
func (r *ResultCache) Close() {
	r.cache.Close()
}
