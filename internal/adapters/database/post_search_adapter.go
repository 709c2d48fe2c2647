package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

const (
	postPopularity = "p.likes_count + p.engagement_score"
	postTags       = "ARRAY(SELECT h.tag FROM post_hashtags ph JOIN hashtags h ON h.id = ph.hashtag_id WHERE ph.post_id = p.id ORDER BY h.tag)"
)

// PostSearchAdapter implements PostSearchRepository over PostgreSQL
type PostSearchAdapter struct {
	client *postgres.Client
	text   *TextSearch
	now    func() time.Time
}

// NewPostSearchAdapter creates a new post search adapter
func NewPostSearchAdapter(client *postgres.Client, text *TextSearch) repositories.PostSearchRepository {
	return &PostSearchAdapter{
		client: client,
		text:   text,
		now:    time.Now,
	}
}

// Search returns scored posts. A query starting with '#' matches tagged posts only.
func (a *PostSearchAdapter) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.PostResult], error) {
	params = normalizeParams(params)
	if params.Query == "" || (ranking.IsHashtagQuery(params.Query) && ranking.HashtagTerm(params.Query) == "") {
		return repositories.EmptyPage[entities.PostResult](), nil
	}

	page, err := searchWithFallback(a.text, func(trigram bool) (*repositories.SearchPage[entities.PostResult], error) {
		return a.search(ctx, params, trigram)
	})
	if err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypePost), "search", err)
	}
	return page, nil
}

func (a *PostSearchAdapter) search(ctx context.Context, p repositories.EntitySearchParams, trigram bool) (*repositories.SearchPage[entities.PostResult], error) {
	q := p.Query
	hashtagMode := ranking.IsHashtagQuery(q)

	profile := ranking.PostProfile
	terms := scoreTerms{popularity: goqu.L(postPopularity)}
	var match exp.Expression

	if hashtagMode {
		profile = profile.WithoutFuzzy()
		match = goqu.L(
			"EXISTS (SELECT 1 FROM post_hashtags ph JOIN hashtags h ON h.id = ph.hashtag_id WHERE ph.post_id = p.id AND lower(h.tag) LIKE ?)",
			likePrefix(strings.ToLower(ranking.HashtagTerm(q))),
		)
	} else {
		terms.textRank = tsRank("p.content", q)
		or := []exp.Expression{tsMatch("p.content", q), iContains("p.content", q)}
		if trigram {
			terms.similarity = similarity("p.content", q)
		} else {
			profile = profile.WithoutSimilarity()
		}
		match = goqu.Or(or...)
	}

	conds := append([]exp.Expression{match}, postFilters(p.Filters, a.now())...)
	filtered := dialect.From(goqu.T("posts").As("p")).
		Prepared(true).
		LeftJoin(goqu.T("users").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("p.author_id")))).
		Where(conds...)

	columns := []interface{}{
		"p.id", "p.content", "p.author_id",
		goqu.I("a.username").As("author_username"),
		goqu.L("coalesce(a.is_verified, false)").As("author_verified"),
		"p.likes_count", "p.comments_count", "p.shares_count", "p.engagement_score",
		"p.media_url", goqu.L(postTags).As("hashtags"), "p.created_at",
		blendExpression(profile, terms).As("relevance"),
		goqu.L("false").As("exact_match"),
	}
	order := orderFor(p.SortBy, sortColumns{
		popularity: goqu.L(postPopularity),
		created:    "p.created_at",
		id:         "p.id",
	})

	return fetchPage(ctx, a.client.DB(), filtered, columns, order, p, func(rows *sql.Rows) (entities.PostResult, error) {
		return scanPostResult(rows, q, hashtagMode)
	})
}

// postFilters renders the facet filters that apply to posts
func postFilters(f entities.SearchFilters, now time.Time) []exp.Expression {
	conds := []exp.Expression{goqu.I("p.is_deleted").IsFalse()}
	if f.VerifiedOnly {
		conds = append(conds, goqu.I("a.is_verified").IsTrue())
	}
	return append(conds, createdWindow("p.created_at", f, now)...)
}

func scanPostResult(rows *sql.Rows, query string, hashtagMode bool) (entities.PostResult, error) {
	var (
		r          entities.PostResult
		authorName sql.NullString
		mediaURL   sql.NullString
		relevance  float64
		exactMatch bool
	)

	err := rows.Scan(
		&r.ID,
		&r.Content,
		&r.AuthorID,
		&authorName,
		&r.AuthorVerified,
		&r.LikesCount,
		&r.CommentsCount,
		&r.SharesCount,
		&r.EngagementScore,
		&mediaURL,
		pq.Array(&r.Hashtags),
		&r.CreatedAt,
		&relevance,
		&exactMatch,
	)
	if err != nil {
		return r, err
	}

	r.AuthorUsername = authorName.String
	r.MediaURL = mediaURL.String
	r.RelevanceScore = ranking.Clamp(relevance)
	if !hashtagMode {
		r.MatchedSnippet = ranking.Snippet(r.Content, query)
	}
	return r, nil
}
