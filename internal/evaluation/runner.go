package evaluation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

// evalDepth is the K in Recall@K and MRR@K
const evalDepth = 10

// SearchResultProvider is the search entry point under evaluation
type SearchResultProvider interface {
	Search(ctx context.Context, q entities.SearchQuery) (*entities.SearchResults, error)
}

// Runner runs evaluation across a set of golden queries.
type Runner struct {
	searchService SearchResultProvider
}

func NewRunner(svc SearchResultProvider) *Runner {
	return &Runner{searchService: svc}
}

// Run scores every golden query. A failing query counts towards the
// averages with zero recall.
func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalQueries: len(queries),
		ByScope:      make(map[entities.SearchScope]*ScopeSummary),
	}

	for _, gq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scope, _ := entities.ParseSearchScope(string(gq.Scope))
		start := time.Now()
		results, err := r.searchService.Search(ctx, entities.SearchQuery{
			Text:  gq.Query,
			Scope: scope,
			Limit: evalDepth,
		})
		duration := time.Since(start)

		result := EvalResult{
			QueryID: gq.ID,
			Query:   gq.Query,
			Scope:   scope,
			Latency: duration,
		}
		if err != nil {
			log.Warn().Err(err).Str("query_id", gq.ID).Msg("golden query failed")
			summary.FailedQueries++
		} else {
			result.RetrievedIDs = RetrievedIDs(results)
			result.ResultCount = results.Totals.Sum()
			result.RecallAt10 = RecallAtK(gq.ExpectedIDs, result.RetrievedIDs, evalDepth)
			result.MRRAt10 = MRRAtK(gq.ExpectedIDs, result.RetrievedIDs, evalDepth)
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

// RetrievedIDs flattens a result set into result keys, campaigns first,
// then users, posts, hashtags, each in ranked order.
func RetrievedIDs(results *entities.SearchResults) []string {
	ids := make([]string, 0, len(results.Campaigns)+len(results.Users)+len(results.Posts)+len(results.Hashtags))
	for _, c := range results.Campaigns {
		ids = append(ids, ResultKey(entities.EntityTypeCampaign, c.ID))
	}
	for _, u := range results.Users {
		ids = append(ids, ResultKey(entities.EntityTypeUser, u.ID))
	}
	for _, p := range results.Posts {
		ids = append(ids, ResultKey(entities.EntityTypePost, p.ID))
	}
	for _, h := range results.Hashtags {
		ids = append(ids, ResultKey(entities.EntityTypeHashtag, h.ID))
	}
	return ids
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.Results = append(s.Results, res)
	s.AvgRecallAt10 += res.RecallAt10
	s.AvgMRRAt10 += res.MRRAt10
	s.AvgLatency += res.Latency
	if res.ResultCount > 0 {
		s.QueriesWithHits++
	}

	if _, ok := s.ByScope[res.Scope]; !ok {
		s.ByScope[res.Scope] = &ScopeSummary{}
	}
	ss := s.ByScope[res.Scope]
	ss.Count++
	ss.AvgRecallAt10 += res.RecallAt10
	ss.AvgMRRAt10 += res.MRRAt10
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.AvgRecallAt10 /= n
		s.AvgMRRAt10 /= n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, ss := range s.ByScope {
		if ss.Count > 0 {
			n := float64(ss.Count)
			ss.AvgRecallAt10 /= n
			ss.AvgMRRAt10 /= n
		}
	}
}
