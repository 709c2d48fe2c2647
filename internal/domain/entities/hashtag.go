package entities

import (
	"time"
)

// Hashtag represents a tag attached to posts
type Hashtag struct {
	ID         string     `json:"id" db:"id"`
	Tag        string     `json:"tag" db:"tag"`
	UsageCount int        `json:"usage_count" db:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
