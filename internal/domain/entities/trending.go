package entities

import (
	"time"
)

// TrendingSnapshot is the periodic roll-up of what is popular
type TrendingSnapshot struct {
	TrendingQueries  []PopularQuery `json:"trending_queries"`
	PopularHashtags  []Hashtag      `json:"popular_hashtags"`
	PopularCampaigns []Campaign     `json:"popular_campaigns"`
	CachedAt         time.Time      `json:"cached_at"`
}
