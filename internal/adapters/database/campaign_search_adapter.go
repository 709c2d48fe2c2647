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

const campaignDocument = "c.name || ' ' || coalesce(c.description, '')"

// CampaignSearchAdapter implements CampaignSearchRepository over PostgreSQL
type CampaignSearchAdapter struct {
	client *postgres.Client
	text   *TextSearch
	now    func() time.Time
}

// NewCampaignSearchAdapter creates a new campaign search adapter
func NewCampaignSearchAdapter(client *postgres.Client, text *TextSearch) repositories.CampaignSearchRepository {
	return &CampaignSearchAdapter{
		client: client,
		text:   text,
		now:    time.Now,
	}
}

// Search returns scored campaigns matching the query and filters
func (a *CampaignSearchAdapter) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.CampaignResult], error) {
	params = normalizeParams(params)
	if params.Query == "" {
		return repositories.EmptyPage[entities.CampaignResult](), nil
	}

	page, err := searchWithFallback(a.text, func(trigram bool) (*repositories.SearchPage[entities.CampaignResult], error) {
		return a.search(ctx, params, trigram)
	})
	if err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypeCampaign), "search", err)
	}
	return page, nil
}

func (a *CampaignSearchAdapter) search(ctx context.Context, p repositories.EntitySearchParams, trigram bool) (*repositories.SearchPage[entities.CampaignResult], error) {
	q := p.Query
	lowered := strings.ToLower(q)

	profile := ranking.CampaignProfile
	exact := lowerEq("c.name", lowered)
	terms := scoreTerms{
		textRank:   tsRank(campaignDocument, q),
		exact:      exact,
		prefix:     lowerHasPrefix("c.name", lowered),
		category:   goqu.L("EXISTS (SELECT 1 FROM unnest(c.categories) AS cat WHERE lower(cat) = ?)", lowered),
		popularity: goqu.I("c.donor_count"),
		boosted:    goqu.I("c.is_featured"),
	}
	match := []exp.Expression{
		tsMatch(campaignDocument, q),
		iContains("c.name", q),
		iContains("c.description", q),
	}
	if trigram {
		terms.similarity = similarity("c.name", q)
		match = append(match, similarTo("c.name", q))
	} else {
		profile = profile.WithoutSimilarity()
	}

	conds := append([]exp.Expression{goqu.Or(match...)}, campaignFilters(p.Filters, a.now())...)
	filtered := dialect.From(goqu.T("campaigns").As("c")).Prepared(true).Where(conds...)

	columns := []interface{}{
		"c.id", "c.name", "c.description", "c.categories", "c.goal_amount", "c.amount_raised",
		"c.donor_count", "c.image_url", "c.is_featured", "c.is_verified", "c.is_active",
		"c.creator_id", "c.end_date", "c.created_at",
		blendExpression(profile, terms).As("relevance"),
		exact.As("exact_match"),
	}
	order := orderFor(p.SortBy, sortColumns{
		popularity: goqu.I("c.donor_count"),
		amount:     goqu.I("c.amount_raised"),
		created:    "c.created_at",
		id:         "c.id",
	})

	return fetchPage(ctx, a.client.DB(), filtered, columns, order, p, func(rows *sql.Rows) (entities.CampaignResult, error) {
		return scanCampaignResult(rows, q)
	})
}

// campaignFilters renders the facet filters that apply to campaigns
func campaignFilters(f entities.SearchFilters, now time.Time) []exp.Expression {
	f = f.Canonical()
	var conds []exp.Expression

	if len(f.Categories) > 0 {
		conds = append(conds, goqu.L(
			"EXISTS (SELECT 1 FROM unnest(c.categories) AS cat WHERE lower(cat) = ANY(?::text[]))",
			pq.Array(f.Categories),
		))
	}
	if f.VerifiedOnly {
		conds = append(conds, goqu.I("c.is_verified").IsTrue())
	}
	conds = append(conds, createdWindow("c.created_at", f, now)...)
	if f.MinGoalAmount != nil {
		conds = append(conds, goqu.I("c.goal_amount").Gte(*f.MinGoalAmount))
	}
	if f.MaxGoalAmount != nil {
		conds = append(conds, goqu.I("c.goal_amount").Lte(*f.MaxGoalAmount))
	}
	if f.IsActiveOnly() {
		conds = append(conds,
			goqu.I("c.is_active").IsTrue(),
			goqu.Or(goqu.I("c.end_date").IsNull(), goqu.I("c.end_date").Gt(now)),
		)
	}
	return conds
}

func scanCampaignResult(rows *sql.Rows, query string) (entities.CampaignResult, error) {
	var (
		r           entities.CampaignResult
		description sql.NullString
		imageURL    sql.NullString
		creatorID   sql.NullString
		endDate     sql.NullTime
		relevance   float64
		exactMatch  bool
	)

	err := rows.Scan(
		&r.ID,
		&r.Name,
		&description,
		pq.Array(&r.Categories),
		&r.GoalAmount,
		&r.AmountRaised,
		&r.DonorCount,
		&imageURL,
		&r.IsFeatured,
		&r.IsVerified,
		&r.IsActive,
		&creatorID,
		&endDate,
		&r.CreatedAt,
		&relevance,
		&exactMatch,
	)
	if err != nil {
		return r, err
	}

	r.Description = description.String
	r.ImageURL = imageURL.String
	r.CreatorID = creatorID.String
	if endDate.Valid {
		t := endDate.Time
		r.EndDate = &t
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}

	r.RelevanceScore = ranking.Clamp(relevance)
	r.MatchedSnippet = ranking.Snippet(r.Description, query)
	if r.MatchedSnippet == "" {
		r.MatchedSnippet = ranking.Snippet(r.Name, query)
	}
	return r, nil
}
