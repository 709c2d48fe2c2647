package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/domain/repositories"
)

var (
	_ repositories.SuggestionRepository      = (*Store)(nil)
	_ repositories.RecentSearchRepository    = (*Store)(nil)
	_ repositories.TrendingRepository        = (*Store)(nil)
	_ repositories.SearchAnalyticsRepository = (*Store)(nil)
)

// HashtagsByPrefix returns hashtags whose tag starts with prefix, most used first
func (s *Store) HashtagsByPrefix(ctx context.Context, prefix string, limit int) ([]entities.Hashtag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	tags := []entities.Hashtag{}
	for _, h := range s.hashtags {
		if strings.HasPrefix(strings.ToLower(h.Tag), prefix) {
			tags = append(tags, h)
		}
	}
	sortHashtags(tags)
	return truncate(tags, limit), nil
}

// PopularQueriesByPrefix returns popular terms starting with prefix
func (s *Store) PopularQueriesByPrefix(ctx context.Context, prefix string, limit int) ([]entities.PopularQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	return truncate(s.popularWhere(func(term string, e *popularEntry) bool {
		return strings.HasPrefix(term, prefix)
	}), limit), nil
}

// CampaignNamesByPrefix returns names of open campaigns starting with prefix
func (s *Store) CampaignNamesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	now := s.now()
	matched := []entities.Campaign{}
	for _, c := range s.campaigns {
		if c.IsOpen(now) && strings.HasPrefix(strings.ToLower(c.Name), prefix) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DonorCount != matched[j].DonorCount {
			return matched[i].DonorCount > matched[j].DonorCount
		}
		return matched[i].Name < matched[j].Name
	})

	names := []string{}
	for _, c := range truncate(matched, limit) {
		names = append(names, c.Name)
	}
	return names, nil
}

// FindSimilarQuery returns the most similar popular term above threshold
func (s *Store) FindSimilarQuery(ctx context.Context, query string, threshold float64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowered := strings.ToLower(query)
	best, bestScore, bestCount := "", 0.0, 0
	for term, e := range s.popular {
		if term == lowered {
			continue
		}
		score := ranking.TrigramSimilarity(term, lowered)
		if score <= threshold {
			continue
		}
		better := score > bestScore ||
			(score == bestScore && e.count > bestCount) ||
			(score == bestScore && e.count == bestCount && term < best)
		if best == "" || better {
			best, bestScore, bestCount = term, score, e.count
		}
	}
	return best, nil
}

// Record upserts query into the user's recent searches
func (s *Store) Record(ctx context.Context, userID, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recent[userID] == nil {
		s.recent[userID] = make(map[string]time.Time)
	}
	s.recent[userID][query] = s.now()
	return nil
}

// ListByPrefix returns the user's latest queries starting with prefix
func (s *Store) ListByPrefix(ctx context.Context, userID, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		query string
		at    time.Time
	}
	prefix = strings.ToLower(prefix)
	entries := []entry{}
	for q, at := range s.recent[userID] {
		if strings.HasPrefix(strings.ToLower(q), prefix) {
			entries = append(entries, entry{q, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.After(entries[j].at)
		}
		return entries[i].query < entries[j].query
	})

	queries := []string{}
	for _, e := range truncate(entries, limit) {
		queries = append(queries, e.query)
	}
	return queries, nil
}

// TopHashtags returns hashtags used since the given time, by usage
func (s *Store) TopHashtags(ctx context.Context, since time.Time, limit int) ([]entities.Hashtag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := []entities.Hashtag{}
	for _, h := range s.hashtags {
		if h.LastUsedAt != nil && !h.LastUsedAt.Before(since) {
			tags = append(tags, h)
		}
	}
	sortHashtags(tags)
	return truncate(tags, limit), nil
}

// TopCampaigns returns open campaigns by featured flag then donor count
func (s *Store) TopCampaigns(ctx context.Context, limit int) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	campaigns := []entities.Campaign{}
	for _, c := range s.campaigns {
		if c.IsOpen(now) {
			campaigns = append(campaigns, c)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		a, b := campaigns[i], campaigns[j]
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if a.DonorCount != b.DonorCount {
			return a.DonorCount > b.DonorCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return truncate(campaigns, limit), nil
}

// TopQueries returns the most searched terms since the given time
func (s *Store) TopQueries(ctx context.Context, since time.Time, limit int) ([]entities.PopularQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return truncate(s.popularWhere(func(term string, e *popularEntry) bool {
		return !e.lastSearched.Before(since)
	}), limit), nil
}

// LogEvent appends the event and bumps the popular-queries corpus
func (s *Store) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	s.events = append(s.events, *event)

	if event.ResultCount > 0 && event.NormalizedQuery != "" {
		e, ok := s.popular[event.NormalizedQuery]
		if !ok {
			e = &popularEntry{}
			s.popular[event.NormalizedQuery] = e
		}
		e.count++
		e.lastSearched = event.CreatedAt
	}
	return nil
}

// LogClick appends a click record
func (s *Store) LogClick(ctx context.Context, click *entities.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if click.ID == "" {
		click.ID = uuid.New().String()
	}
	if click.CreatedAt.IsZero() {
		click.CreatedAt = s.now()
	}
	s.clicks = append(s.clicks, *click)
	return nil
}

// popularWhere must be called with the read lock held
func (s *Store) popularWhere(keep func(term string, e *popularEntry) bool) []entities.PopularQuery {
	queries := []entities.PopularQuery{}
	for term, e := range s.popular {
		if keep(term, e) {
			queries = append(queries, entities.PopularQuery{Term: term, Count: e.count})
		}
	}
	sort.Slice(queries, func(i, j int) bool {
		if queries[i].Count != queries[j].Count {
			return queries[i].Count > queries[j].Count
		}
		return queries[i].Term < queries[j].Term
	})
	return queries
}

func sortHashtags(tags []entities.Hashtag) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].UsageCount != tags[j].UsageCount {
			return tags[i].UsageCount > tags[j].UsageCount
		}
		return tags[i].Tag < tags[j].Tag
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
