package database

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/ranking"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	"github.com/fundbrave/search-service/pkg/utils"
)

// undefined_function, raised when pg_trgm is missing
const sqlStateUndefinedFunction = "42883"

// minimum pg_trgm similarity for a fuzzy-only match
const similarityMatchThreshold = 0.3

var dialect = goqu.Dialect("postgres")

// TextSearch tracks whether trigram similarity is usable. It is shared by all
// search adapters; once a query fails on a missing function every adapter
// stops asking for similarity.
type TextSearch struct {
	trigram atomic.Bool
}

// NewTextSearch returns capabilities with trigram similarity on or off
func NewTextSearch(trigram bool) *TextSearch {
	ts := &TextSearch{}
	ts.trigram.Store(trigram)
	return ts
}

// DetectTextSearch checks whether the pg_trgm extension is installed
func DetectTextSearch(ctx context.Context, client *postgres.Client) (*TextSearch, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pg_trgm')`

	var installed bool
	if err := client.DB().QueryRowContext(ctx, query).Scan(&installed); err != nil {
		return nil, err
	}
	if !installed {
		log.Warn().Msg("pg_trgm not installed, search runs without trigram similarity")
	}
	return NewTextSearch(installed), nil
}

// Trigram reports whether similarity() may be used
func (t *TextSearch) Trigram() bool {
	return t.trigram.Load()
}

// degrade switches similarity off when err came from a missing function. It
// reports whether the caller should retry without similarity.
func (t *TextSearch) degrade(err error, usedTrigram bool) bool {
	if !usedTrigram || !isUndefinedFunction(err) {
		return false
	}
	if t.trigram.CompareAndSwap(true, false) {
		log.Warn().Err(err).Msg("trigram similarity unavailable, falling back to text rank only")
	}
	return true
}

func isUndefinedFunction(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == sqlStateUndefinedFunction
}

// searchWithFallback runs fn with the current trigram capability and retries
// once without it when the store rejects similarity().
func searchWithFallback[T any](ts *TextSearch, fn func(trigram bool) (T, error)) (T, error) {
	trigram := ts.Trigram()
	result, err := fn(trigram)
	if err != nil && ts.degrade(err, trigram) {
		return fn(false)
	}
	return result, err
}

// scoreTerms holds the SQL rendering of each relevance signal. Nil terms are
// left out of the blend.
type scoreTerms struct {
	textRank   exp.Expression
	similarity exp.Expression
	exact      exp.Expression
	prefix     exp.Expression
	category   exp.Expression
	popularity exp.Expression
	boosted    exp.Expression
}

// blendExpression renders ranking.Blend for one row. Weights are bound as
// parameters so the SQL text is stable across profiles.
func blendExpression(p ranking.Profile, t scoreTerms) exp.LiteralExpression {
	var parts []interface{}

	weighted := func(signal exp.Expression, weight float64) {
		if signal != nil && weight != 0 {
			parts = append(parts, goqu.L("COALESCE(?, 0) * ?::float8", signal, weight))
		}
	}
	bonus := func(cond exp.Expression, value float64) {
		if cond != nil && value != 0 {
			parts = append(parts, goqu.L("CASE WHEN ? THEN ?::float8 ELSE 0 END", cond, value))
		}
	}

	weighted(t.textRank, p.TextRankWeight)
	weighted(t.similarity, p.SimilarityWeight)
	bonus(t.exact, p.ExactBonus)
	bonus(t.prefix, p.PrefixBonus)
	bonus(t.category, p.CategoryBonus)
	if t.popularity != nil && p.PopularityScale != 0 {
		parts = append(parts, goqu.L("LEAST(GREATEST(?, 0), ?::float8) * ?::float8",
			t.popularity, p.PopularityCap, p.PopularityScale))
	}
	bonus(t.boosted, p.BoostBonus)

	if len(parts) == 0 {
		return goqu.L("0::float8")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("? + ", len(parts)), " + ")
	return goqu.L("("+placeholders+")", parts...)
}

func tsRank(document string, query string) exp.LiteralExpression {
	return goqu.L("ts_rank(to_tsvector('english', "+document+"), plainto_tsquery('english', ?))", query)
}

func tsMatch(document string, query string) exp.LiteralExpression {
	return goqu.L("to_tsvector('english', "+document+") @@ plainto_tsquery('english', ?)", query)
}

func similarity(column string, query string) exp.LiteralExpression {
	return goqu.L("similarity("+column+", ?)", query)
}

func similarTo(column string, query string) exp.LiteralExpression {
	return goqu.L("similarity("+column+", ?) > ?::float8", query, similarityMatchThreshold)
}

func lowerEq(column string, lowered string) exp.LiteralExpression {
	return goqu.L("lower("+column+") = ?", lowered)
}

func lowerHasPrefix(column string, lowered string) exp.LiteralExpression {
	return goqu.L("lower("+column+") LIKE ?", likePrefix(lowered))
}

func iContains(column string, query string) exp.LiteralExpression {
	return goqu.L(column+" ILIKE ?", likeContains(query))
}

func likePrefix(s string) string {
	return utils.EscapeLike(s) + "%"
}

func likeContains(s string) string {
	return "%" + utils.EscapeLike(s) + "%"
}

// createdWindow bounds a timestamp column by the filter's date range
func createdWindow(column string, f entities.SearchFilters, now time.Time) []exp.Expression {
	from, to := f.Window(now)
	var conds []exp.Expression
	if from != nil {
		conds = append(conds, goqu.I(column).Gte(*from))
	}
	if to != nil {
		conds = append(conds, goqu.I(column).Lte(*to))
	}
	return conds
}
