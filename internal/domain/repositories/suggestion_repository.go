package repositories

import (
	"context"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

// SuggestionRepository reads the corpora behind autocomplete and did-you-mean
type SuggestionRepository interface {
	// HashtagsByPrefix returns hashtags whose tag starts with prefix, most used first
	HashtagsByPrefix(ctx context.Context, prefix string, limit int) ([]entities.Hashtag, error)

	// PopularQueriesByPrefix returns popular query terms starting with prefix, most searched first
	PopularQueriesByPrefix(ctx context.Context, prefix string, limit int) ([]entities.PopularQuery, error)

	// CampaignNamesByPrefix returns active campaign names starting with prefix
	CampaignNamesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error)

	// FindSimilarQuery returns the popular query most similar to query above threshold, or ""
	FindSimilarQuery(ctx context.Context, query string, threshold float64) (string, error)
}

// RecentSearchRepository stores per-user search history
type RecentSearchRepository interface {
	// Record upserts query into the user's history with the current time
	Record(ctx context.Context, userID, query string) error

	// ListByPrefix returns the user's most recent queries starting with prefix
	ListByPrefix(ctx context.Context, userID, prefix string, limit int) ([]string, error)
}
