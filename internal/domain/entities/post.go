package entities

import (
	"time"
)

// Post represents a social post as seen by search
type Post struct {
	ID              string    `json:"id" db:"id"`
	Content         string    `json:"content" db:"content"`
	AuthorID        string    `json:"author_id" db:"author_id"`
	AuthorUsername  string    `json:"author_username,omitempty" db:"author_username"`
	AuthorVerified  bool      `json:"author_verified" db:"author_verified"`
	LikesCount      int       `json:"likes_count" db:"likes_count"`
	CommentsCount   int       `json:"comments_count" db:"comments_count"`
	SharesCount     int       `json:"shares_count" db:"shares_count"`
	EngagementScore float64   `json:"engagement_score" db:"engagement_score"`
	MediaURL        string    `json:"media_url,omitempty" db:"media_url"`
	Hashtags        []string  `json:"hashtags,omitempty"`
	IsDeleted       bool      `json:"-" db:"is_deleted"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Popularity is the metric the relevance blend uses for posts
func (p *Post) Popularity() float64 {
	return float64(p.LikesCount) + p.EngagementScore
}
