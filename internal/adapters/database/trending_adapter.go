package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// TrendingAdapter implements TrendingRepository over PostgreSQL
type TrendingAdapter struct {
	client *postgres.Client
	now    func() time.Time
}

// NewTrendingAdapter creates a new trending adapter
func NewTrendingAdapter(client *postgres.Client) repositories.TrendingRepository {
	return &TrendingAdapter{
		client: client,
		now:    time.Now,
	}
}

// TopHashtags returns hashtags used since the given time, by usage
func (a *TrendingAdapter) TopHashtags(ctx context.Context, since time.Time, limit int) ([]entities.Hashtag, error) {
	query, args, err := dialect.From("hashtags").Prepared(true).
		Select("id", "tag", "usage_count", "last_used_at", "created_at").
		Where(goqu.C("last_used_at").Gte(since)).
		Order(goqu.C("usage_count").Desc(), goqu.C("tag").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trending hashtag query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query trending hashtags", err)
	}
	defer rows.Close()

	return scanHashtags(rows)
}

// TopCampaigns returns open campaigns by featured flag then donor count
func (a *TrendingAdapter) TopCampaigns(ctx context.Context, limit int) ([]entities.Campaign, error) {
	query, args, err := dialect.From("campaigns").Prepared(true).
		Select(
			"id", "name", "description", "categories", "goal_amount", "amount_raised",
			"donor_count", "image_url", "is_featured", "is_verified", "is_active",
			"creator_id", "end_date", "created_at",
		).
		Where(
			goqu.C("is_active").IsTrue(),
			goqu.Or(goqu.C("end_date").IsNull(), goqu.C("end_date").Gt(a.now())),
		).
		Order(goqu.C("is_featured").Desc(), goqu.C("donor_count").Desc(), goqu.C("created_at").Desc(), goqu.C("id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trending campaign query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query trending campaigns", err)
	}
	defer rows.Close()

	campaigns := []entities.Campaign{}
	for rows.Next() {
		var (
			c           entities.Campaign
			description sql.NullString
			imageURL    sql.NullString
			creatorID   sql.NullString
			endDate     sql.NullTime
		)
		err := rows.Scan(
			&c.ID, &c.Name, &description, pq.Array(&c.Categories), &c.GoalAmount, &c.AmountRaised,
			&c.DonorCount, &imageURL, &c.IsFeatured, &c.IsVerified, &c.IsActive,
			&creatorID, &endDate, &c.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan campaign", err)
		}
		c.Description = description.String
		c.ImageURL = imageURL.String
		c.CreatorID = creatorID.String
		if endDate.Valid {
			t := endDate.Time
			c.EndDate = &t
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read trending campaigns", err)
	}
	return campaigns, nil
}

// TopQueries returns the most searched terms since the given time
func (a *TrendingAdapter) TopQueries(ctx context.Context, since time.Time, limit int) ([]entities.PopularQuery, error) {
	query, args, err := dialect.From("search_suggestions").Prepared(true).
		Select("term", "search_count").
		Where(goqu.C("last_searched_at").Gte(since)).
		Order(goqu.C("search_count").Desc(), goqu.C("term").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trending query lookup", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query trending searches", err)
	}
	defer rows.Close()

	return scanPopularQueries(rows)
}
