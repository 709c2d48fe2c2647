package entities

import (
	"time"
)

// User represents a platform account as seen by search
type User struct {
	ID            string    `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	Bio           string    `json:"bio,omitempty" db:"bio"`
	AvatarURL     string    `json:"avatar_url,omitempty" db:"avatar_url"`
	WalletAddress string    `json:"wallet_address,omitempty" db:"wallet_address"`
	IsVerified    bool      `json:"is_verified" db:"is_verified"`
	FollowerCount int       `json:"follower_count" db:"follower_count"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
