package entities

import (
	"time"
)

// Campaign represents a crowdfunding campaign as seen by search
type Campaign struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description" db:"description"`
	Categories   []string   `json:"categories" db:"categories"`
	GoalAmount   float64    `json:"goal_amount" db:"goal_amount"`
	AmountRaised float64    `json:"amount_raised" db:"amount_raised"`
	DonorCount   int        `json:"donor_count" db:"donor_count"`
	ImageURL     string     `json:"image_url,omitempty" db:"image_url"`
	IsFeatured   bool       `json:"is_featured" db:"is_featured"`
	IsVerified   bool       `json:"is_verified" db:"is_verified"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatorID    string     `json:"creator_id" db:"creator_id"`
	EndDate      *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the campaign is active and has not ended at now
func (c *Campaign) IsOpen(now time.Time) bool {
	return c.IsActive && (c.EndDate == nil || c.EndDate.After(now))
}
