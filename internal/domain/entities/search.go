package entities

import (
	"sort"
	"strings"
	"time"
)

// EntityType names one searchable collection
type EntityType string

const (
	EntityTypeCampaign EntityType = "campaign"
	EntityTypeUser     EntityType = "user"
	EntityTypePost     EntityType = "post"
	EntityTypeHashtag  EntityType = "hashtag"
)

// ParseEntityType accepts the singular lowercase names used on the wire
func ParseEntityType(s string) (EntityType, bool) {
	switch t := EntityType(strings.ToLower(strings.TrimSpace(s))); t {
	case EntityTypeCampaign, EntityTypeUser, EntityTypePost, EntityTypeHashtag:
		return t, true
	}
	return "", false
}

// SearchScope selects which entity types a search targets
type SearchScope string

const (
	SearchScopeAll       SearchScope = "ALL"
	SearchScopeCampaigns SearchScope = "CAMPAIGNS"
	SearchScopeUsers     SearchScope = "USERS"
	SearchScopePosts     SearchScope = "POSTS"
	SearchScopeHashtags  SearchScope = "HASHTAGS"
)

// ParseSearchScope is case-insensitive; "" means ALL
func ParseSearchScope(s string) (SearchScope, bool) {
	if strings.TrimSpace(s) == "" {
		return SearchScopeAll, true
	}
	switch sc := SearchScope(strings.ToUpper(strings.TrimSpace(s))); sc {
	case SearchScopeAll, SearchScopeCampaigns, SearchScopeUsers, SearchScopePosts, SearchScopeHashtags:
		return sc, true
	}
	return "", false
}

// Includes reports whether the scope covers an entity type
func (s SearchScope) Includes(t EntityType) bool {
	switch s {
	case SearchScopeAll:
		return true
	case SearchScopeCampaigns:
		return t == EntityTypeCampaign
	case SearchScopeUsers:
		return t == EntityTypeUser
	case SearchScopePosts:
		return t == EntityTypePost
	case SearchScopeHashtags:
		return t == EntityTypeHashtag
	}
	return false
}

// SortBy selects the per-type ordering
type SortBy string

const (
	SortByRelevance  SortBy = "RELEVANCE"
	SortByDateDesc   SortBy = "DATE_DESC"
	SortByDateAsc    SortBy = "DATE_ASC"
	SortByPopularity SortBy = "POPULARITY"
	SortByAmount     SortBy = "AMOUNT"
)

// ParseSortBy is case-insensitive; "" means RELEVANCE
func ParseSortBy(s string) (SortBy, bool) {
	if strings.TrimSpace(s) == "" {
		return SortByRelevance, true
	}
	switch sb := SortBy(strings.ToUpper(strings.TrimSpace(s))); sb {
	case SortByRelevance, SortByDateDesc, SortByDateAsc, SortByPopularity, SortByAmount:
		return sb, true
	}
	return "", false
}

// DateRange is a relative or custom creation window
type DateRange string

const (
	DateRangeToday     DateRange = "TODAY"
	DateRangeThisWeek  DateRange = "THIS_WEEK"
	DateRangeThisMonth DateRange = "THIS_MONTH"
	DateRangeThisYear  DateRange = "THIS_YEAR"
	DateRangeCustom    DateRange = "CUSTOM"
)

// ParseDateRange is case-insensitive; "" means no window
func ParseDateRange(s string) (DateRange, bool) {
	if strings.TrimSpace(s) == "" {
		return "", true
	}
	switch dr := DateRange(strings.ToUpper(strings.TrimSpace(s))); dr {
	case DateRangeToday, DateRangeThisWeek, DateRangeThisMonth, DateRangeThisYear, DateRangeCustom:
		return dr, true
	}
	return "", false
}

// SearchFilters are ANDed by every adapter that supports them
type SearchFilters struct {
	Categories    []string   `json:"categories,omitempty"`
	VerifiedOnly  bool       `json:"verified_only,omitempty"`
	DateRange     DateRange  `json:"date_range,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	MinGoalAmount *float64   `json:"min_goal_amount,omitempty"`
	MaxGoalAmount *float64   `json:"max_goal_amount,omitempty"`
	ActiveOnly    *bool      `json:"active_only,omitempty"`
}

// IsActiveOnly resolves the campaign default of true
func (f SearchFilters) IsActiveOnly() bool {
	return f.ActiveOnly == nil || *f.ActiveOnly
}

// Canonical returns an equivalent filter set with a single spelling:
// categories trimmed, lowercased, deduplicated and sorted, active_only
// resolved, custom bounds in UTC and dropped for relative windows.
func (f SearchFilters) Canonical() SearchFilters {
	out := SearchFilters{
		VerifiedOnly:  f.VerifiedOnly,
		DateRange:     f.DateRange,
		MinGoalAmount: f.MinGoalAmount,
		MaxGoalAmount: f.MaxGoalAmount,
	}

	active := f.IsActiveOnly()
	out.ActiveOnly = &active

	seen := make(map[string]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out.Categories = append(out.Categories, c)
	}
	sort.Strings(out.Categories)

	if f.DateRange == DateRangeCustom {
		if f.DateFrom != nil {
			from := f.DateFrom.UTC()
			out.DateFrom = &from
		}
		if f.DateTo != nil {
			to := f.DateTo.UTC()
			out.DateTo = &to
		}
	}
	return out
}

// Window resolves the date range against now. Nil bounds are open.
func (f SearchFilters) Window(now time.Time) (from, to *time.Time) {
	now = now.UTC()
	var start time.Time
	switch f.DateRange {
	case DateRangeToday:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case DateRangeThisWeek:
		start = now.AddDate(0, 0, -7)
	case DateRangeThisMonth:
		start = now.AddDate(0, -1, 0)
	case DateRangeThisYear:
		start = now.AddDate(-1, 0, 0)
	case DateRangeCustom:
		return f.DateFrom, f.DateTo
	default:
		return nil, nil
	}
	return &start, nil
}

// SearchQuery is one unified search request
type SearchQuery struct {
	Text      string
	Scope     SearchScope
	SortBy    SortBy
	Limit     int
	Offset    int
	Filters   SearchFilters
	UserID    string
	IPAddress string
	UserAgent string
}

// CampaignResult is a scored campaign projection
type CampaignResult struct {
	Campaign
	RelevanceScore int    `json:"relevance_score"`
	MatchedSnippet string `json:"matched_snippet,omitempty"`
}

// UserResult is a scored user projection
type UserResult struct {
	User
	RelevanceScore int    `json:"relevance_score"`
	MatchedSnippet string `json:"matched_snippet,omitempty"`
}

// PostResult is a scored post projection
type PostResult struct {
	Post
	RelevanceScore int    `json:"relevance_score"`
	MatchedSnippet string `json:"matched_snippet,omitempty"`
}

// HashtagResult is a scored hashtag projection
type HashtagResult struct {
	Hashtag
	RelevanceScore int `json:"relevance_score"`
}

// SearchTotals holds the unpaginated match count per type
type SearchTotals struct {
	Campaigns int `json:"campaigns"`
	Users     int `json:"users"`
	Posts     int `json:"posts"`
	Hashtags  int `json:"hashtags"`
}

// Sum adds up every type's total
func (t SearchTotals) Sum() int {
	return t.Campaigns + t.Users + t.Posts + t.Hashtags
}

// SearchResults is the aggregate returned and cached for one query
type SearchResults struct {
	Campaigns       []CampaignResult `json:"campaigns"`
	Users           []UserResult     `json:"users"`
	Posts           []PostResult     `json:"posts"`
	Hashtags        []HashtagResult  `json:"hashtags"`
	Totals          SearchTotals     `json:"totals"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	DidYouMean      string           `json:"did_you_mean,omitempty"`
	DegradedTypes   []EntityType     `json:"degraded_types,omitempty"`
}

// NewEmptySearchResults returns results with non-nil empty buckets
func NewEmptySearchResults() *SearchResults {
	return &SearchResults{
		Campaigns: []CampaignResult{},
		Users:     []UserResult{},
		Posts:     []PostResult{},
		Hashtags:  []HashtagResult{},
	}
}
