package repositories

import (
	"context"
	"time"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

// TrendingRepository computes the sections of a trending snapshot
type TrendingRepository interface {
	// TopHashtags returns hashtags used since the given time, by usage
	TopHashtags(ctx context.Context, since time.Time, limit int) ([]entities.Hashtag, error)

	// TopCampaigns returns active campaigns by featured flag then donor count
	TopCampaigns(ctx context.Context, limit int) ([]entities.Campaign, error)

	// TopQueries returns the most searched terms since the given time
	TopQueries(ctx context.Context, since time.Time, limit int) ([]entities.PopularQuery, error)
}
