package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// HashtagSearchAdapter implements HashtagSearchRepository over PostgreSQL
type HashtagSearchAdapter struct {
	client *postgres.Client
	text   *TextSearch
	now    func() time.Time
}

// NewHashtagSearchAdapter creates a new hashtag search adapter
func NewHashtagSearchAdapter(client *postgres.Client, text *TextSearch) repositories.HashtagSearchRepository {
	return &HashtagSearchAdapter{
		client: client,
		text:   text,
		now:    time.Now,
	}
}

// Search returns scored hashtags; a leading '#' in the query is ignored
func (a *HashtagSearchAdapter) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.HashtagResult], error) {
	params = normalizeParams(params)
	params.Query = strings.ToLower(ranking.HashtagTerm(params.Query))
	if params.Query == "" {
		return repositories.EmptyPage[entities.HashtagResult](), nil
	}

	page, err := searchWithFallback(a.text, func(trigram bool) (*repositories.SearchPage[entities.HashtagResult], error) {
		return a.search(ctx, params, trigram)
	})
	if err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypeHashtag), "search", err)
	}
	return page, nil
}

func (a *HashtagSearchAdapter) search(ctx context.Context, p repositories.EntitySearchParams, trigram bool) (*repositories.SearchPage[entities.HashtagResult], error) {
	term := p.Query

	profile := ranking.HashtagProfile
	exact := lowerEq("h.tag", term)
	terms := scoreTerms{
		exact:      exact,
		prefix:     lowerHasPrefix("h.tag", term),
		popularity: goqu.I("h.usage_count"),
	}
	match := []exp.Expression{goqu.L("lower(h.tag) LIKE ?", likeContains(term))}
	if trigram {
		terms.similarity = similarity("h.tag", term)
		match = append(match, similarTo("h.tag", term))
	} else {
		profile = profile.WithoutSimilarity()
	}

	conds := append([]exp.Expression{goqu.Or(match...)}, createdWindow("h.last_used_at", p.Filters, a.now())...)
	filtered := dialect.From(goqu.T("hashtags").As("h")).Prepared(true).Where(conds...)

	columns := []interface{}{
		"h.id", "h.tag", "h.usage_count", "h.last_used_at", "h.created_at",
		blendExpression(profile, terms).As("relevance"),
		exact.As("exact_match"),
	}
	order := orderFor(p.SortBy, sortColumns{
		popularity: goqu.I("h.usage_count"),
		created:    "h.created_at",
		id:         "h.id",
	})

	return fetchPage(ctx, a.client.DB(), filtered, columns, order, p, scanHashtagResult)
}

func scanHashtagResult(rows *sql.Rows) (entities.HashtagResult, error) {
	var (
		r          entities.HashtagResult
		lastUsed   sql.NullTime
		relevance  float64
		exactMatch bool
	)

	if err := rows.Scan(&r.ID, &r.Tag, &r.UsageCount, &lastUsed, &r.CreatedAt, &relevance, &exactMatch); err != nil {
		return r, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		r.LastUsedAt = &t
	}
	r.RelevanceScore = ranking.Clamp(relevance)
	return r, nil
}
