package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

type SearchAnalyticsAdapter struct {
	client *postgres.Client
}

func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{client: client}
}

// LogEvent appends the search record and, for searches that found something,
// bumps the popular-queries aggregate in the same transaction.
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	filters := "{}"
	if len(event.Filters) > 0 {
		filters = string(event.Filters)
	}

	insertSQL, insertArgs, err := dialect.Insert("search_analytics").Prepared(true).
		Rows(goqu.Record{
			"id":               event.ID,
			"query":            event.Query,
			"normalized_query": event.NormalizedQuery,
			"scope":            string(event.Scope),
			"result_count":     event.ResultCount,
			"filters":          goqu.L("?::jsonb", filters),
			"latency_ms":       event.LatencyMs,
			"user_id":          nullString(event.UserID),
			"ip_address":       nullString(event.IPAddress),
			"user_agent":       nullString(event.UserAgent),
			"cache_hit":        event.CacheHit,
			"created_at":       event.CreatedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search event insert", err)
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewExternalError("failed to begin analytics transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return apperrors.NewExternalError("failed to log search event", err)
	}

	if event.ResultCount > 0 && event.NormalizedQuery != "" {
		upsertSQL, upsertArgs, err := dialect.Insert("search_suggestions").Prepared(true).
			Rows(goqu.Record{
				"term":             event.NormalizedQuery,
				"search_count":     1,
				"last_searched_at": event.CreatedAt,
			}).
			OnConflict(goqu.DoUpdate("term", goqu.Record{
				"search_count":     goqu.L("search_suggestions.search_count + 1"),
				"last_searched_at": goqu.L("EXCLUDED.last_searched_at"),
			})).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build popular query upsert", err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, upsertArgs...); err != nil {
			return apperrors.NewExternalError("failed to update popular queries", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewExternalError("failed to commit search event", err)
	}
	return nil
}

// LogClick appends a result click record
func (a *SearchAnalyticsAdapter) LogClick(ctx context.Context, click *entities.ClickEvent) error {
	if click.ID == "" {
		click.ID = uuid.New().String()
	}
	if click.CreatedAt.IsZero() {
		click.CreatedAt = time.Now()
	}

	var position sql.NullInt64
	if click.Position != nil {
		position = sql.NullInt64{Int64: int64(*click.Position), Valid: true}
	}

	query, args, err := dialect.Insert("search_clicks").Prepared(true).
		Rows(goqu.Record{
			"id":          click.ID,
			"query":       click.Query,
			"result_id":   click.ResultID,
			"result_type": string(click.ResultType),
			"user_id":     nullString(click.UserID),
			"position":    position,
			"created_at":  click.CreatedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build click insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewExternalError("failed to log search click", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
