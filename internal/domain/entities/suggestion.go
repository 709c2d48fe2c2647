package entities

// SuggestionType tags where a suggestion came from
type SuggestionType string

const (
	SuggestionTypeRecent       SuggestionType = "recent"
	SuggestionTypeHashtag      SuggestionType = "hashtag"
	SuggestionTypePopular      SuggestionType = "popular"
	SuggestionTypeAutocomplete SuggestionType = "autocomplete"
)

// Suggestion is one autocomplete entry
type Suggestion struct {
	Term  string         `json:"term"`
	Type  SuggestionType `json:"type"`
	Count *int           `json:"count,omitempty"`
}

// SuggestionsResponse is returned by the suggestion engine
type SuggestionsResponse struct {
	Suggestions    []Suggestion `json:"suggestions"`
	RecentSearches []string     `json:"recent_searches,omitempty"`
}

// PopularQuery is an entry of the popular-queries corpus
type PopularQuery struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}
