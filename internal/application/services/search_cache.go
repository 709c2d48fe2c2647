package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/providers"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
)

const (
	// SearchCachePrefix namespaces cached result sets; bump the version when the payload shape changes
	SearchCachePrefix = "search:v1:"

	// SearchCachePattern matches every cached result set
	SearchCachePattern = SearchCachePrefix + "*"

	// TrendingCacheKey holds the current trending snapshot
	TrendingCacheKey = "search:trending:v1"

	// SuggestionCachePrefix namespaces the non-personalized suggestion lists
	SuggestionCachePrefix = "search:suggest:v1:"
)

// SearchCacheKey identifies one result set. Every field is already normalized.
type SearchCacheKey struct {
	Query   string
	Scope   entities.SearchScope
	SortBy  entities.SortBy
	Limit   int
	Offset  int
	Filters entities.SearchFilters
}

// SearchCache stores whole SearchResults values over a CacheProvider.
// Cache errors degrade to misses.
type SearchCache struct {
	provider providers.CacheProvider
	metrics  *observability.Metrics
}

// NewSearchCache creates a result cache
func NewSearchCache(provider providers.CacheProvider, metrics *observability.Metrics) *SearchCache {
	return &SearchCache{provider: provider, metrics: metrics}
}

// Key hashes the canonical form of k. Equivalent filters produce the same key.
func (c *SearchCache) Key(k SearchCacheKey) string {
	filters, _ := json.Marshal(k.Filters.Canonical())

	var b strings.Builder
	b.WriteString(strings.ToLower(k.Query))
	b.WriteByte(0)
	b.WriteString(string(k.Scope))
	b.WriteByte(0)
	b.WriteString(string(k.SortBy))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(k.Limit))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(k.Offset))
	b.WriteByte(0)
	b.Write(filters)

	return SearchCachePrefix + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// Get returns the stored results for key
func (c *SearchCache) Get(ctx context.Context, key string) (*entities.SearchResults, bool) {
	var results entities.SearchResults
	if !getJSON(ctx, c.provider, key, &results) {
		observability.RecordCacheMiss(ctx, c.metrics, "results")
		return nil, false
	}
	observability.RecordCacheHit(ctx, c.metrics, "results")
	return &results, true
}

// Set stores results under key for ttl
func (c *SearchCache) Set(ctx context.Context, key string, results *entities.SearchResults, ttl time.Duration) {
	setJSON(ctx, c.provider, key, results, ttl)
}

// getJSON decodes a cached JSON value; any failure reads as a miss
func getJSON(ctx context.Context, provider providers.CacheProvider, key string, out interface{}) bool {
	if provider == nil {
		return false
	}
	data, err := provider.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

// setJSON encodes and stores value; failures are logged only
func setJSON(ctx context.Context, provider providers.CacheProvider, key string, value interface{}, ttl time.Duration) {
	if provider == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := provider.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
