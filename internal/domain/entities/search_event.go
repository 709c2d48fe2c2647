package entities

import (
	"encoding/json"
	"time"
)

// SearchEvent represents a single search interaction for analytics.
type SearchEvent struct {
	ID              string          `json:"id" db:"id"`
	Query           string          `json:"query" db:"query"`
	NormalizedQuery string          `json:"normalized_query" db:"normalized_query"`
	Scope           SearchScope     `json:"scope" db:"scope"`
	ResultCount     int             `json:"result_count" db:"result_count"`
	Filters         json.RawMessage `json:"filters,omitempty" db:"filters"`
	LatencyMs       int64           `json:"latency_ms" db:"latency_ms"`
	UserID          string          `json:"user_id,omitempty" db:"user_id"`
	IPAddress       string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent       string          `json:"user_agent,omitempty" db:"user_agent"`
	CacheHit        bool            `json:"cache_hit" db:"cache_hit"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// ClickEvent records a click on one search result.
type ClickEvent struct {
	ID         string     `json:"id" db:"id"`
	Query      string     `json:"query" db:"query"`
	ResultID   string     `json:"result_id" db:"result_id"`
	ResultType EntityType `json:"result_type" db:"result_type"`
	UserID     string     `json:"user_id,omitempty" db:"user_id"`
	Position   *int       `json:"position,omitempty" db:"position"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
