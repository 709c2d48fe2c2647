package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// SuggestionAdapter implements SuggestionRepository and RecentSearchRepository
type SuggestionAdapter struct {
	client *postgres.Client
	text   *TextSearch
	now    func() time.Time
}

// NewSuggestionAdapter creates a new suggestion adapter
func NewSuggestionAdapter(client *postgres.Client, text *TextSearch) *SuggestionAdapter {
	return &SuggestionAdapter{
		client: client,
		text:   text,
		now:    time.Now,
	}
}

var (
	_ repositories.SuggestionRepository   = (*SuggestionAdapter)(nil)
	_ repositories.RecentSearchRepository = (*SuggestionAdapter)(nil)
)

// HashtagsByPrefix returns hashtags whose tag starts with prefix, most used first
func (a *SuggestionAdapter) HashtagsByPrefix(ctx context.Context, prefix string, limit int) ([]entities.Hashtag, error) {
	query, args, err := dialect.From("hashtags").Prepared(true).
		Select("id", "tag", "usage_count", "last_used_at", "created_at").
		Where(goqu.L("lower(tag) LIKE ?", likePrefix(strings.ToLower(prefix)))).
		Order(goqu.C("usage_count").Desc(), goqu.C("tag").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build hashtag prefix query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query hashtags by prefix", err)
	}
	defer rows.Close()

	return scanHashtags(rows)
}

// PopularQueriesByPrefix returns popular query terms starting with prefix
func (a *SuggestionAdapter) PopularQueriesByPrefix(ctx context.Context, prefix string, limit int) ([]entities.PopularQuery, error) {
	query, args, err := dialect.From("search_suggestions").Prepared(true).
		Select("term", "search_count").
		Where(goqu.L("term LIKE ?", likePrefix(strings.ToLower(prefix)))).
		Order(goqu.C("search_count").Desc(), goqu.C("last_searched_at").Desc(), goqu.C("term").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build popular query lookup", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query popular searches", err)
	}
	defer rows.Close()

	return scanPopularQueries(rows)
}

// CampaignNamesByPrefix returns names of open campaigns starting with prefix
func (a *SuggestionAdapter) CampaignNamesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	query, args, err := dialect.From("campaigns").Prepared(true).
		Select("name").
		Where(
			goqu.L("lower(name) LIKE ?", likePrefix(strings.ToLower(prefix))),
			goqu.C("is_active").IsTrue(),
			goqu.Or(goqu.C("end_date").IsNull(), goqu.C("end_date").Gt(a.now())),
		).
		Order(goqu.C("donor_count").Desc(), goqu.C("name").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build campaign name query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query campaign names", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.NewInternalError("failed to scan campaign name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read campaign names", err)
	}
	return names, nil
}

// FindSimilarQuery returns the popular query most similar to query, or "" when
// nothing passes threshold or trigram similarity is unavailable.
func (a *SuggestionAdapter) FindSimilarQuery(ctx context.Context, query string, threshold float64) (string, error) {
	if !a.text.Trigram() {
		return "", nil
	}
	lowered := strings.ToLower(query)

	sqlQuery, args, err := dialect.From("search_suggestions").Prepared(true).
		Select("term").
		Where(
			goqu.L("similarity(term, ?) > ?::float8", lowered, threshold),
			goqu.C("term").Neq(lowered),
		).
		Order(goqu.L("similarity(term, ?)", lowered).Desc(), goqu.C("search_count").Desc(), goqu.C("term").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build similar query lookup", err)
	}

	var term string
	err = a.client.DB().QueryRowContext(ctx, sqlQuery, args...).Scan(&term)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		if a.text.degrade(err, true) {
			return "", nil
		}
		return "", apperrors.NewExternalError("failed to find similar query", err)
	}
	return term, nil
}

// Record upserts query into the user's recent searches
func (a *SuggestionAdapter) Record(ctx context.Context, userID, query string) error {
	sqlQuery, args, err := dialect.Insert("recent_searches").Prepared(true).
		Rows(goqu.Record{
			"user_id":     userID,
			"query":       query,
			"searched_at": a.now(),
		}).
		OnConflict(goqu.DoUpdate("user_id, query", goqu.Record{
			"searched_at": goqu.L("EXCLUDED.searched_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build recent search upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, sqlQuery, args...); err != nil {
		return apperrors.NewExternalError("failed to record recent search", err)
	}
	return nil
}

// ListByPrefix returns the user's latest queries starting with prefix
func (a *SuggestionAdapter) ListByPrefix(ctx context.Context, userID, prefix string, limit int) ([]string, error) {
	ds := dialect.From("recent_searches").Prepared(true).
		Select("query").
		Where(goqu.C("user_id").Eq(userID)).
		Order(goqu.C("searched_at").Desc(), goqu.C("query").Asc()).
		Limit(uint(limit))
	if prefix != "" {
		ds = ds.Where(goqu.L("lower(query) LIKE ?", likePrefix(strings.ToLower(prefix))))
	}

	sqlQuery, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build recent search query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query recent searches", err)
	}
	defer rows.Close()

	queries := []string{}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, apperrors.NewInternalError("failed to scan recent search", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read recent searches", err)
	}
	return queries, nil
}

func scanHashtags(rows *sql.Rows) ([]entities.Hashtag, error) {
	hashtags := []entities.Hashtag{}
	for rows.Next() {
		var (
			h        entities.Hashtag
			lastUsed sql.NullTime
		)
		if err := rows.Scan(&h.ID, &h.Tag, &h.UsageCount, &lastUsed, &h.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan hashtag", err)
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			h.LastUsedAt = &t
		}
		hashtags = append(hashtags, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read hashtags", err)
	}
	return hashtags, nil
}

func scanPopularQueries(rows *sql.Rows) ([]entities.PopularQuery, error) {
	queries := []entities.PopularQuery{}
	for rows.Next() {
		var q entities.PopularQuery
		if err := rows.Scan(&q.Term, &q.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan popular query", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read popular queries", err)
	}
	return queries, nil
}
