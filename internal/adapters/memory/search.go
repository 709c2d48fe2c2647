package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
	"github.com/fundbrave/search-service/pkg/utils"
)

const (
	defaultPageSize = 10

	// similarityThreshold matches the pg_trgm default used by the % operator
	similarityThreshold = 0.3
)

// orderKey carries the fields every sort variant compares
type orderKey struct {
	exact      bool
	relevance  float64
	popularity float64
	amount     float64
	hasAmount  bool
	created    time.Time
	id         string
}

type candidate[T any] struct {
	key    orderKey
	result T
}

// before mirrors the SQL ORDER BY for each sort; every variant ends on id
func (a orderKey) before(b orderKey, sortBy entities.SortBy) bool {
	switch sortBy {
	case entities.SortByDateDesc:
		if !a.created.Equal(b.created) {
			return a.created.After(b.created)
		}
	case entities.SortByDateAsc:
		if !a.created.Equal(b.created) {
			return a.created.Before(b.created)
		}
	case entities.SortByAmount, entities.SortByPopularity:
		av, bv := a.popularity, b.popularity
		if sortBy == entities.SortByAmount && a.hasAmount {
			av, bv = a.amount, b.amount
		}
		if av != bv {
			return av > bv
		}
		if !a.created.Equal(b.created) {
			return a.created.After(b.created)
		}
	default:
		if a.exact != b.exact {
			return a.exact
		}
		if a.relevance != b.relevance {
			return a.relevance > b.relevance
		}
		if a.popularity != b.popularity {
			return a.popularity > b.popularity
		}
		if !a.created.Equal(b.created) {
			return a.created.After(b.created)
		}
	}
	return a.id < b.id
}

func normalizeParams(p repositories.EntitySearchParams) repositories.EntitySearchParams {
	p.Query = utils.SanitizeQuery(p.Query)
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.SortBy == "" {
		p.SortBy = entities.SortByRelevance
	}
	return p
}

// paginate orders every match and cuts one page; total counts all matches
func paginate[T any](cands []candidate[T], p repositories.EntitySearchParams) *repositories.SearchPage[T] {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].key.before(cands[j].key, p.SortBy)
	})

	page := repositories.EmptyPage[T]()
	page.Total = len(cands)
	if p.Offset >= len(cands) {
		return page
	}
	end := p.Offset + p.Limit
	if end > len(cands) {
		end = len(cands)
	}
	for _, c := range cands[p.Offset:end] {
		page.Items = append(page.Items, c.result)
	}
	return page
}

func inWindow(t *time.Time, f entities.SearchFilters, now time.Time) bool {
	from, to := f.Window(now)
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func containsFold(text, lowered string) bool {
	return strings.Contains(strings.ToLower(text), lowered)
}

type campaignSearch struct{ s *Store }

func (r campaignSearch) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.CampaignResult], error) {
	params = normalizeParams(params)
	if params.Query == "" {
		return repositories.EmptyPage[entities.CampaignResult](), nil
	}
	if err := r.s.begin(ctx, entities.EntityTypeCampaign); err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypeCampaign), "search", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := params.Query
	lowered := strings.ToLower(q)
	f := params.Filters.Canonical()
	now := r.s.now()

	var cands []candidate[entities.CampaignResult]
	for _, c := range r.s.campaigns {
		if !campaignPasses(c, f, now) {
			continue
		}
		document := c.Name + " " + c.Description
		similarity := ranking.TrigramSimilarity(c.Name, q)
		matched := ranking.MatchesAllTerms(document, q) ||
			containsFold(c.Name, lowered) ||
			containsFold(c.Description, lowered) ||
			similarity > similarityThreshold
		if !matched {
			continue
		}

		lowerName := strings.ToLower(c.Name)
		signals := ranking.Signals{
			TextRank:   ranking.TextRank(document, q),
			Similarity: similarity,
			Exact:      lowerName == lowered,
			Prefix:     strings.HasPrefix(lowerName, lowered),
			Popularity: float64(c.DonorCount),
			Boosted:    c.IsFeatured,
		}
		for _, cat := range c.Categories {
			if strings.ToLower(cat) == lowered {
				signals.Category = true
				break
			}
		}
		score := ranking.Blend(signals, ranking.CampaignProfile)

		result := entities.CampaignResult{Campaign: c, RelevanceScore: ranking.Clamp(score)}
		if result.Categories == nil {
			result.Categories = []string{}
		}
		if result.MatchedSnippet = ranking.Snippet(c.Description, q); result.MatchedSnippet == "" {
			result.MatchedSnippet = ranking.Snippet(c.Name, q)
		}

		cands = append(cands, candidate[entities.CampaignResult]{
			key: orderKey{
				exact:      signals.Exact,
				relevance:  score,
				popularity: float64(c.DonorCount),
				amount:     c.AmountRaised,
				hasAmount:  true,
				created:    c.CreatedAt,
				id:         c.ID,
			},
			result: result,
		})
	}
	return paginate(cands, params), nil
}

func campaignPasses(c entities.Campaign, f entities.SearchFilters, now time.Time) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, cat := range c.Categories {
			for _, want := range f.Categories {
				if strings.ToLower(cat) == want {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if f.VerifiedOnly && !c.IsVerified {
		return false
	}
	created := c.CreatedAt
	if !inWindow(&created, f, now) {
		return false
	}
	if f.MinGoalAmount != nil && c.GoalAmount < *f.MinGoalAmount {
		return false
	}
	if f.MaxGoalAmount != nil && c.GoalAmount > *f.MaxGoalAmount {
		return false
	}
	if f.IsActiveOnly() && !c.IsOpen(now) {
		return false
	}
	return true
}

type userSearch struct{ s *Store }

func (r userSearch) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.UserResult], error) {
	params = normalizeParams(params)
	if params.Query == "" {
		return repositories.EmptyPage[entities.UserResult](), nil
	}
	if err := r.s.begin(ctx, entities.EntityTypeUser); err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypeUser), "search", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := params.Query
	lowered := strings.ToLower(q)
	wallet := ranking.IsWalletAddress(q)
	now := r.s.now()

	var cands []candidate[entities.UserResult]
	for _, u := range r.s.users {
		if !u.IsActive || (params.Filters.VerifiedOnly && !u.IsVerified) {
			continue
		}
		created := u.CreatedAt
		if !inWindow(&created, params.Filters, now) {
			continue
		}

		var (
			signals ranking.Signals
			profile ranking.Profile
		)
		if wallet {
			address := strings.ToLower(u.WalletAddress)
			if !strings.HasPrefix(address, lowered) {
				continue
			}
			profile = ranking.UserProfile.WithoutFuzzy()
			signals = ranking.Signals{Exact: address == lowered, Prefix: true}
		} else {
			document := u.Username + " " + u.DisplayName + " " + u.Bio
			similarity := ranking.TrigramSimilarity(u.Username, q)
			if s := ranking.TrigramSimilarity(u.DisplayName, q); s > similarity {
				similarity = s
			}
			matched := ranking.MatchesAllTerms(document, q) ||
				containsFold(u.Username, lowered) ||
				containsFold(u.DisplayName, lowered) ||
				similarity > similarityThreshold
			if !matched {
				continue
			}
			username, display := strings.ToLower(u.Username), strings.ToLower(u.DisplayName)
			profile = ranking.UserProfile
			signals = ranking.Signals{
				TextRank:   ranking.TextRank(document, q),
				Similarity: similarity,
				Exact:      username == lowered || display == lowered,
				Prefix:     strings.HasPrefix(username, lowered) || strings.HasPrefix(display, lowered),
			}
		}
		signals.Popularity = float64(u.FollowerCount)
		signals.Boosted = u.IsVerified
		score := ranking.Blend(signals, profile)

		result := entities.UserResult{User: u, RelevanceScore: ranking.Clamp(score)}
		if wallet {
			result.MatchedSnippet = ranking.Snippet(u.WalletAddress, q)
		} else if result.MatchedSnippet = ranking.Snippet(u.Bio, q); result.MatchedSnippet == "" {
			result.MatchedSnippet = ranking.Snippet(u.DisplayName, q)
		}

		cands = append(cands, candidate[entities.UserResult]{
			key: orderKey{
				exact:      signals.Exact,
				relevance:  score,
				popularity: float64(u.FollowerCount),
				created:    u.CreatedAt,
				id:         u.ID,
			},
			result: result,
		})
	}
	return paginate(cands, params), nil
}

type postSearch struct{ s *Store }

func (r postSearch) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.PostResult], error) {
	params = normalizeParams(params)
	hashtagMode := ranking.IsHashtagQuery(params.Query)
	if params.Query == "" || (hashtagMode && ranking.HashtagTerm(params.Query) == "") {
		return repositories.EmptyPage[entities.PostResult](), nil
	}
	if err := r.s.begin(ctx, entities.EntityTypePost); err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypePost), "search", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := params.Query
	lowered := strings.ToLower(q)
	tagPrefix := strings.ToLower(ranking.HashtagTerm(q))
	now := r.s.now()

	var cands []candidate[entities.PostResult]
	for _, p := range r.s.posts {
		if p.IsDeleted {
			continue
		}
		author, hasAuthor := r.s.users[p.AuthorID]
		if hasAuthor {
			p.AuthorUsername = author.Username
			p.AuthorVerified = author.IsVerified
		}
		if params.Filters.VerifiedOnly && !p.AuthorVerified {
			continue
		}
		created := p.CreatedAt
		if !inWindow(&created, params.Filters, now) {
			continue
		}

		signals := ranking.Signals{Popularity: p.Popularity()}
		profile := ranking.PostProfile
		if hashtagMode {
			tagged := false
			for _, tag := range p.Hashtags {
				if strings.HasPrefix(strings.ToLower(tag), tagPrefix) {
					tagged = true
					break
				}
			}
			if !tagged {
				continue
			}
			profile = profile.WithoutFuzzy()
		} else {
			if !ranking.MatchesAllTerms(p.Content, q) && !containsFold(p.Content, lowered) {
				continue
			}
			signals.TextRank = ranking.TextRank(p.Content, q)
			signals.Similarity = ranking.TrigramSimilarity(p.Content, q)
		}
		score := ranking.Blend(signals, profile)

		result := entities.PostResult{Post: p, RelevanceScore: ranking.Clamp(score)}
		result.Hashtags = sortedTags(p.Hashtags)
		if !hashtagMode {
			result.MatchedSnippet = ranking.Snippet(p.Content, q)
		}

		cands = append(cands, candidate[entities.PostResult]{
			key: orderKey{
				relevance:  score,
				popularity: p.Popularity(),
				created:    p.CreatedAt,
				id:         p.ID,
			},
			result: result,
		})
	}
	return paginate(cands, params), nil
}

func sortedTags(tags []string) []string {
	out := append([]string{}, tags...)
	sort.Strings(out)
	return out
}

type hashtagSearch struct{ s *Store }

func (r hashtagSearch) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.HashtagResult], error) {
	params = normalizeParams(params)
	params.Query = strings.ToLower(ranking.HashtagTerm(params.Query))
	if params.Query == "" {
		return repositories.EmptyPage[entities.HashtagResult](), nil
	}
	if err := r.s.begin(ctx, entities.EntityTypeHashtag); err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypeHashtag), "search", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	term := params.Query
	now := r.s.now()

	var cands []candidate[entities.HashtagResult]
	for _, h := range r.s.hashtags {
		if !inWindow(h.LastUsedAt, params.Filters, now) {
			continue
		}
		tag := strings.ToLower(h.Tag)
		similarity := ranking.TrigramSimilarity(tag, term)
		if !strings.Contains(tag, term) && similarity <= similarityThreshold {
			continue
		}

		signals := ranking.Signals{
			Similarity: similarity,
			Exact:      tag == term,
			Prefix:     strings.HasPrefix(tag, term),
			Popularity: float64(h.UsageCount),
		}
		score := ranking.Blend(signals, ranking.HashtagProfile)

		cands = append(cands, candidate[entities.HashtagResult]{
			key: orderKey{
				exact:      signals.Exact,
				relevance:  score,
				popularity: float64(h.UsageCount),
				created:    h.CreatedAt,
				id:         h.ID,
			},
			result: entities.HashtagResult{Hashtag: h, RelevanceScore: ranking.Clamp(score)},
		})
	}
	return paginate(cands, params), nil
}
