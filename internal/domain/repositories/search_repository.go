package repositories

import (
	"context"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

// EntitySearchParams are the inputs shared by every entity search adapter
type EntitySearchParams struct {
	Query   string
	Filters entities.SearchFilters
	SortBy  entities.SortBy
	Limit   int
	Offset  int
}

// SearchPage is one page of scored results plus the unpaginated match count
type SearchPage[T any] struct {
	Items []T
	Total int
}

// EmptyPage returns a page with a non-nil empty item slice
func EmptyPage[T any]() *SearchPage[T] {
	return &SearchPage[T]{Items: []T{}}
}

// CampaignSearchRepository searches campaigns
type CampaignSearchRepository interface {
	Search(ctx context.Context, params EntitySearchParams) (*SearchPage[entities.CampaignResult], error)
}

// UserSearchRepository searches users
type UserSearchRepository interface {
	Search(ctx context.Context, params EntitySearchParams) (*SearchPage[entities.UserResult], error)
}

// PostSearchRepository searches posts
type PostSearchRepository interface {
	Search(ctx context.Context, params EntitySearchParams) (*SearchPage[entities.PostResult], error)
}

// HashtagSearchRepository searches hashtags
type HashtagSearchRepository interface {
	Search(ctx context.Context, params EntitySearchParams) (*SearchPage[entities.HashtagResult], error)
}
