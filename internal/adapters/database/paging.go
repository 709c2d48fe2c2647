package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/pkg/utils"
)

const defaultPageSize = 10

// normalizeParams applies the adapter-side defaults to a search request
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

// sortColumns names the columns an entity orders on
type sortColumns struct {
	popularity exp.Orderable
	amount     exp.Orderable
	created    string
	id         string
}

// orderFor returns a total order for the requested sort. Every variant ends
// with the id so ties are deterministic.
func orderFor(sortBy entities.SortBy, cols sortColumns) []exp.OrderedExpression {
	created := goqu.I(cols.created)
	id := goqu.I(cols.id).Asc()

	switch sortBy {
	case entities.SortByDateDesc:
		return []exp.OrderedExpression{created.Desc(), id}
	case entities.SortByDateAsc:
		return []exp.OrderedExpression{created.Asc(), id}
	case entities.SortByAmount:
		if cols.amount != nil {
			return []exp.OrderedExpression{cols.amount.Desc(), created.Desc(), id}
		}
		return []exp.OrderedExpression{cols.popularity.Desc(), created.Desc(), id}
	case entities.SortByPopularity:
		return []exp.OrderedExpression{cols.popularity.Desc(), created.Desc(), id}
	default:
		return []exp.OrderedExpression{
			goqu.I("exact_match").Desc(),
			goqu.I("relevance").Desc(),
			cols.popularity.Desc(),
			created.Desc(),
			id,
		}
	}
}

// fetchPage counts the filtered dataset and then reads one page of it. Both
// statements are derived from the same dataset so total and items agree.
func fetchPage[T any](
	ctx context.Context,
	db *sql.DB,
	filtered *goqu.SelectDataset,
	columns []interface{},
	order []exp.OrderedExpression,
	p repositories.EntitySearchParams,
	scan func(*sql.Rows) (T, error),
) (*repositories.SearchPage[T], error) {
	countSQL, countArgs, err := filtered.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, err
	}

	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	page := &repositories.SearchPage[T]{Items: []T{}, Total: total}
	if total == 0 || p.Offset >= total {
		return page, nil
	}

	pageSQL, pageArgs, err := filtered.
		Select(columns...).
		Order(order...).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}
