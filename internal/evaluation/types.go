package evaluation

import (
	"time"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

// GoldenQuery is a labeled query with the results a good ranking returns.
// Expected ids are written as "<entity type>:<id>", e.g. "campaign:c1".
type GoldenQuery struct {
	ID          string               `json:"id"`
	Query       string               `json:"query"`
	Scope       entities.SearchScope `json:"scope"`
	ExpectedIDs []string             `json:"expected_ids"`
	Difficulty  string               `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single query.
type EvalResult struct {
	QueryID      string
	Query        string
	Scope        entities.SearchScope
	RecallAt10   float64
	MRRAt10      float64
	ResultCount  int
	RetrievedIDs []string
	Latency      time.Duration
}

// EvalSummary holds aggregate metrics across all golden queries.
type EvalSummary struct {
	TotalQueries    int
	FailedQueries   int
	AvgRecallAt10   float64
	AvgMRRAt10      float64
	AvgLatency      time.Duration
	QueriesWithHits int // queries that returned at least 1 result
	ByScope         map[entities.SearchScope]*ScopeSummary
	Results         []EvalResult `json:",omitempty"`
}

// ScopeSummary holds metrics grouped by search scope.
type ScopeSummary struct {
	Count         int
	AvgRecallAt10 float64
	AvgMRRAt10    float64
}

// Corpus is a fixture data set loaded into the in-process store.
type Corpus struct {
	Campaigns      []entities.Campaign     `json:"campaigns"`
	Users          []entities.User         `json:"users"`
	Posts          []entities.Post         `json:"posts"`
	Hashtags       []entities.Hashtag      `json:"hashtags"`
	PopularQueries []entities.PopularQuery `json:"popular_queries"`
}

// ResultKey is the identifier golden queries use for one result
func ResultKey(t entities.EntityType, id string) string {
	return string(t) + ":" + id
}
