package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
	"github.com/fundbrave/search-service/pkg/config"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
	"github.com/fundbrave/search-service/pkg/utils"
)

// ErrSearchUnavailable is the caller-visible message when no adapter answered
const ErrSearchUnavailable = "search temporarily unavailable"

// entityOrder fixes the order degraded types are reported in
var entityOrder = []entities.EntityType{
	entities.EntityTypeCampaign,
	entities.EntityTypeUser,
	entities.EntityTypePost,
	entities.EntityTypeHashtag,
}

// SearchRepositories groups the four entity search adapters
type SearchRepositories struct {
	Campaigns repositories.CampaignSearchRepository
	Users     repositories.UserSearchRepository
	Posts     repositories.PostSearchRepository
	Hashtags  repositories.HashtagSearchRepository
}

// SearchService orchestrates one unified search across every entity type
type SearchService struct {
	repos       SearchRepositories
	suggestions repositories.SuggestionRepository
	recent      repositories.RecentSearchRepository
	cache       *SearchCache
	analytics   *SearchAnalyticsService
	tasks       *BackgroundTasks
	cfg         config.SearchConfig
	metrics     *observability.Metrics
}

// NewSearchService creates a new search service
func NewSearchService(
	repos SearchRepositories,
	suggestions repositories.SuggestionRepository,
	recent repositories.RecentSearchRepository,
	cache *SearchCache,
	analytics *SearchAnalyticsService,
	tasks *BackgroundTasks,
	cfg config.SearchConfig,
	metrics *observability.Metrics,
) *SearchService {
	return &SearchService{
		repos:       repos,
		suggestions: suggestions,
		recent:      recent,
		cache:       cache,
		analytics:   analytics,
		tasks:       tasks,
		cfg:         cfg,
		metrics:     metrics,
	}
}

// Search runs q against the cache and, on a miss, every adapter its scope selects.
// Only a search where every invoked adapter failed returns an error.
func (s *SearchService) Search(ctx context.Context, q entities.SearchQuery) (*entities.SearchResults, error) {
	received := time.Now()

	text := utils.SanitizeQuery(q.Text)
	if !utils.IsSearchable(text) {
		return entities.NewEmptySearchResults(), nil
	}

	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	norm := s.normalize(q, text)
	key := s.cache.Key(norm)

	if cached, ok := s.cache.Get(ctx, key); ok {
		s.track(q, norm, cached, time.Since(received), true)
		return cached, nil
	}

	started := time.Now()
	results, err := s.fanOut(ctx, norm)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if results.Totals.Sum() == 0 {
		results.DidYouMean = s.didYouMean(ctx, norm.Query)
	}
	elapsed := time.Since(started)
	results.ExecutionTimeMs = elapsed.Milliseconds()
	observability.RecordSearchDuration(ctx, s.metrics, string(norm.Scope), elapsed)

	if len(results.DegradedTypes) == 0 {
		s.cache.Set(ctx, key, results, s.cfg.ResultTTL)
	}
	s.track(q, norm, results, elapsed, false)
	return results, nil
}

// normalize applies defaults and bounds; the result is the cache key input
func (s *SearchService) normalize(q entities.SearchQuery, text string) SearchCacheKey {
	k := SearchCacheKey{
		Query:   text,
		Scope:   q.Scope,
		SortBy:  q.SortBy,
		Limit:   q.Limit,
		Offset:  q.Offset,
		Filters: q.Filters.Canonical(),
	}
	if k.Scope == "" {
		k.Scope = entities.SearchScopeAll
	}
	if k.SortBy == "" {
		k.SortBy = entities.SortByRelevance
	}
	if k.Limit <= 0 {
		k.Limit = s.cfg.DefaultLimit
	}
	if k.Limit > s.cfg.MaxLimit {
		k.Limit = s.cfg.MaxLimit
	}
	if k.Offset < 0 {
		k.Offset = 0
	}
	return k
}

// fanOut invokes the selected adapters concurrently. A failed or timed out
// adapter leaves its bucket empty and is listed in DegradedTypes.
func (s *SearchService) fanOut(ctx context.Context, k SearchCacheKey) (*entities.SearchResults, error) {
	results := entities.NewEmptySearchResults()
	params := repositories.EntitySearchParams{
		Query:   k.Query,
		Filters: k.Filters,
		SortBy:  k.SortBy,
		Limit:   k.Limit,
		Offset:  k.Offset,
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		invoked int
		failed  []entities.EntityType
		causes  []error
	)
	fail := func(entityType entities.EntityType, err error) {
		mu.Lock()
		failed = append(failed, entityType)
		causes = append(causes, err)
		mu.Unlock()
		log.Warn().Err(err).Str("entity_type", string(entityType)).Str("query", k.Query).Msg("entity search failed, returning partial results")
		observability.RecordAdapterFailure(ctx, s.metrics, string(entityType))
	}

	if k.Scope.Includes(entities.EntityTypeCampaign) {
		invoked++
		g.Go(func() error {
			page, err := runAdapter(ctx, s.cfg.AdapterTimeout, s.repos.Campaigns.Search, params)
			if err != nil {
				fail(entities.EntityTypeCampaign, err)
				return nil
			}
			results.Campaigns, results.Totals.Campaigns = page.Items, page.Total
			return nil
		})
	}
	if k.Scope.Includes(entities.EntityTypeUser) {
		invoked++
		g.Go(func() error {
			page, err := runAdapter(ctx, s.cfg.AdapterTimeout, s.repos.Users.Search, params)
			if err != nil {
				fail(entities.EntityTypeUser, err)
				return nil
			}
			results.Users, results.Totals.Users = page.Items, page.Total
			return nil
		})
	}
	if k.Scope.Includes(entities.EntityTypePost) {
		invoked++
		g.Go(func() error {
			page, err := runAdapter(ctx, s.cfg.AdapterTimeout, s.repos.Posts.Search, params)
			if err != nil {
				fail(entities.EntityTypePost, err)
				return nil
			}
			results.Posts, results.Totals.Posts = page.Items, page.Total
			return nil
		})
	}
	if k.Scope.Includes(entities.EntityTypeHashtag) || ranking.IsHashtagQuery(k.Query) {
		invoked++
		g.Go(func() error {
			page, err := runAdapter(ctx, s.cfg.AdapterTimeout, s.repos.Hashtags.Search, params)
			if err != nil {
				fail(entities.EntityTypeHashtag, err)
				return nil
			}
			results.Hashtags, results.Totals.Hashtags = page.Items, page.Total
			return nil
		})
	}

	_ = g.Wait()

	if invoked > 0 && len(failed) == invoked {
		return nil, apperrors.NewUnavailableError(ErrSearchUnavailable, errors.Join(causes...))
	}
	if len(failed) > 0 {
		results.DegradedTypes = sortEntityTypes(failed)
	}
	return results, nil
}

// runAdapter bounds one adapter call by timeout
func runAdapter[T any](
	ctx context.Context,
	timeout time.Duration,
	search func(context.Context, repositories.EntitySearchParams) (*repositories.SearchPage[T], error),
	params repositories.EntitySearchParams,
) (*repositories.SearchPage[T], error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	page, err := search(ctx, params)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return repositories.EmptyPage[T](), nil
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

func sortEntityTypes(types []entities.EntityType) []entities.EntityType {
	rank := make(map[entities.EntityType]int, len(entityOrder))
	for i, t := range entityOrder {
		rank[t] = i
	}
	sort.Slice(types, func(i, j int) bool { return rank[types[i]] < rank[types[j]] })
	return types
}

// didYouMean looks up a popular query close to query; lookup errors are logged only
func (s *SearchService) didYouMean(ctx context.Context, query string) string {
	if s.suggestions == nil {
		return ""
	}
	if s.cfg.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AdapterTimeout)
		defer cancel()
	}

	lowered := strings.ToLower(query)
	term, err := s.suggestions.FindSimilarQuery(ctx, lowered, s.cfg.DidYouMeanThreshold)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("did-you-mean lookup failed")
		return ""
	}
	if strings.EqualFold(term, lowered) {
		return ""
	}
	return term
}

// track queues the analytics record and the recent-search update
func (s *SearchService) track(q entities.SearchQuery, k SearchCacheKey, results *entities.SearchResults, latency time.Duration, cacheHit bool) {
	filters, err := json.Marshal(k.Filters)
	if err != nil {
		filters = nil
	}

	s.analytics.TrackSearch(&entities.SearchEvent{
		Query:           k.Query,
		NormalizedQuery: strings.ToLower(k.Query),
		Scope:           k.Scope,
		ResultCount:     results.Totals.Sum(),
		Filters:         filters,
		LatencyMs:       latency.Milliseconds(),
		UserID:          q.UserID,
		IPAddress:       q.IPAddress,
		UserAgent:       q.UserAgent,
		CacheHit:        cacheHit,
		CreatedAt:       time.Now(),
	})

	if q.UserID != "" && s.recent != nil {
		userID, query := q.UserID, strings.ToLower(k.Query)
		s.tasks.Go("record_recent_search", func(ctx context.Context) error {
			return s.recent.Record(ctx, userID, query)
		})
	}
}
