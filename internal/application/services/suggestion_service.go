package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/providers"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
	"github.com/fundbrave/search-service/pkg/config"
	"github.com/fundbrave/search-service/pkg/utils"
)

// SuggestionService builds prefix autocomplete lists
type SuggestionService struct {
	suggestions repositories.SuggestionRepository
	recent      repositories.RecentSearchRepository
	cache       providers.CacheProvider
	cfg         config.SearchConfig
	metrics     *observability.Metrics
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(
	suggestions repositories.SuggestionRepository,
	recent repositories.RecentSearchRepository,
	cache providers.CacheProvider,
	cfg config.SearchConfig,
	metrics *observability.Metrics,
) *SuggestionService {
	return &SuggestionService{
		suggestions: suggestions,
		recent:      recent,
		cache:       cache,
		cfg:         cfg,
		metrics:     metrics,
	}
}

// Suggest merges recent, hashtag, popular and campaign-name suggestions in
// that priority. A term seen twice keeps its first type. Errors yield an
// empty list. A bare "#" lists the most used hashtags.
func (s *SuggestionService) Suggest(ctx context.Context, prefix string, limit int, includeRecent bool, userID string) *entities.SuggestionsResponse {
	if limit <= 0 {
		limit = s.cfg.DefaultSuggestions
	}
	if limit > s.cfg.MaxSuggestions {
		limit = s.cfg.MaxSuggestions
	}
	prefix = utils.NormalizeQuery(prefix)

	empty := &entities.SuggestionsResponse{Suggestions: []entities.Suggestion{}}

	var recent []string
	if includeRecent && userID != "" && s.recent != nil {
		var err error
		recent, err = s.recent.ListByPrefix(ctx, userID, prefix, limit)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("recent search lookup failed")
			return empty
		}
	}

	var general []entities.Suggestion
	if prefix != "" {
		var err error
		general, err = s.general(ctx, prefix, limit)
		if err != nil {
			log.Warn().Err(err).Str("prefix", prefix).Msg("suggestion lookup failed")
			return empty
		}
	}

	merged := make([]entities.Suggestion, 0, limit)
	seen := make(map[string]struct{})
	add := func(sg entities.Suggestion) {
		if len(merged) >= limit {
			return
		}
		term := strings.ToLower(sg.Term)
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		merged = append(merged, sg)
	}
	for _, r := range recent {
		add(entities.Suggestion{Term: r, Type: entities.SuggestionTypeRecent})
	}
	for _, sg := range general {
		add(sg)
	}

	resp := &entities.SuggestionsResponse{Suggestions: merged}
	if len(recent) > 0 {
		resp.RecentSearches = recent
	}
	return resp
}

// general returns the non-personalized part, cached per prefix and limit
func (s *SuggestionService) general(ctx context.Context, prefix string, limit int) ([]entities.Suggestion, error) {
	key := SuggestionCachePrefix + strconv.FormatUint(xxhash.Sum64String(prefix+"\x00"+strconv.Itoa(limit)), 16)

	var cached []entities.Suggestion
	if getJSON(ctx, s.cache, key, &cached) {
		observability.RecordCacheHit(ctx, s.metrics, "suggestions")
		return cached, nil
	}
	observability.RecordCacheMiss(ctx, s.metrics, "suggestions")

	var out []entities.Suggestion

	hashtags, err := s.suggestions.HashtagsByPrefix(ctx, ranking.HashtagTerm(prefix), limit)
	if err != nil {
		return nil, err
	}
	for _, h := range hashtags {
		count := h.UsageCount
		out = append(out, entities.Suggestion{Term: h.Tag, Type: entities.SuggestionTypeHashtag, Count: &count})
	}

	popular, err := s.suggestions.PopularQueriesByPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range popular {
		count := p.Count
		out = append(out, entities.Suggestion{Term: p.Term, Type: entities.SuggestionTypePopular, Count: &count})
	}

	if len(out) < limit {
		names, err := s.suggestions.CampaignNamesByPrefix(ctx, prefix, limit-len(out))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			out = append(out, entities.Suggestion{Term: name, Type: entities.SuggestionTypeAutocomplete})
		}
	}

	setJSON(ctx, s.cache, key, out, s.cfg.SuggestionTTL)
	return out, nil
}
