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

const userDocument = "u.username || ' ' || coalesce(u.display_name, '') || ' ' || coalesce(u.bio, '')"

// UserSearchAdapter implements UserSearchRepository over PostgreSQL
type UserSearchAdapter struct {
	client *postgres.Client
	text   *TextSearch
	now    func() time.Time
}

// NewUserSearchAdapter creates a new user search adapter
func NewUserSearchAdapter(client *postgres.Client, text *TextSearch) repositories.UserSearchRepository {
	return &UserSearchAdapter{
		client: client,
		text:   text,
		now:    time.Now,
	}
}

// Search returns scored users. Hex address queries match wallet prefixes only.
func (a *UserSearchAdapter) Search(ctx context.Context, params repositories.EntitySearchParams) (*repositories.SearchPage[entities.UserResult], error) {
	params = normalizeParams(params)
	if params.Query == "" {
		return repositories.EmptyPage[entities.UserResult](), nil
	}

	page, err := searchWithFallback(a.text, func(trigram bool) (*repositories.SearchPage[entities.UserResult], error) {
		return a.search(ctx, params, trigram)
	})
	if err != nil {
		return nil, apperrors.NewSearchBackendError(string(entities.EntityTypeUser), "search", err)
	}
	return page, nil
}

func (a *UserSearchAdapter) search(ctx context.Context, p repositories.EntitySearchParams, trigram bool) (*repositories.SearchPage[entities.UserResult], error) {
	q := p.Query
	lowered := strings.ToLower(q)
	wallet := ranking.IsWalletAddress(q)

	var (
		profile ranking.Profile
		exact   exp.LiteralExpression
		terms   scoreTerms
		match   exp.Expression
	)

	if wallet {
		profile = ranking.UserProfile.WithoutFuzzy()
		exact = lowerEq("coalesce(u.wallet_address, '')", lowered)
		match = lowerHasPrefix("coalesce(u.wallet_address, '')", lowered)
		terms = scoreTerms{
			exact:      exact,
			prefix:     match,
			popularity: goqu.I("u.follower_count"),
			boosted:    goqu.I("u.is_verified"),
		}
	} else {
		profile = ranking.UserProfile
		exact = goqu.L("(? OR ?)", lowerEq("u.username", lowered), lowerEq("coalesce(u.display_name, '')", lowered))
		terms = scoreTerms{
			textRank:   tsRank(userDocument, q),
			exact:      exact,
			prefix:     goqu.L("(? OR ?)", lowerHasPrefix("u.username", lowered), lowerHasPrefix("coalesce(u.display_name, '')", lowered)),
			popularity: goqu.I("u.follower_count"),
			boosted:    goqu.I("u.is_verified"),
		}
		or := []exp.Expression{
			tsMatch(userDocument, q),
			iContains("u.username", q),
			iContains("u.display_name", q),
		}
		if trigram {
			terms.similarity = goqu.L("GREATEST(?, ?)", similarity("u.username", q), similarity("coalesce(u.display_name, '')", q))
			or = append(or, similarTo("u.username", q), similarTo("u.display_name", q))
		} else {
			profile = profile.WithoutSimilarity()
		}
		match = goqu.Or(or...)
	}

	conds := append([]exp.Expression{match}, userFilters(p.Filters, a.now())...)
	filtered := dialect.From(goqu.T("users").As("u")).Prepared(true).Where(conds...)

	columns := []interface{}{
		"u.id", "u.username", "u.display_name", "u.bio", "u.avatar_url", "u.wallet_address",
		"u.is_verified", "u.follower_count", "u.is_active", "u.created_at",
		blendExpression(profile, terms).As("relevance"),
		exact.As("exact_match"),
	}
	order := orderFor(p.SortBy, sortColumns{
		popularity: goqu.I("u.follower_count"),
		created:    "u.created_at",
		id:         "u.id",
	})

	return fetchPage(ctx, a.client.DB(), filtered, columns, order, p, func(rows *sql.Rows) (entities.UserResult, error) {
		return scanUserResult(rows, q, wallet)
	})
}

// userFilters renders the facet filters that apply to users
func userFilters(f entities.SearchFilters, now time.Time) []exp.Expression {
	conds := []exp.Expression{goqu.I("u.is_active").IsTrue()}
	if f.VerifiedOnly {
		conds = append(conds, goqu.I("u.is_verified").IsTrue())
	}
	return append(conds, createdWindow("u.created_at", f, now)...)
}

func scanUserResult(rows *sql.Rows, query string, wallet bool) (entities.UserResult, error) {
	var (
		r           entities.UserResult
		displayName sql.NullString
		bio         sql.NullString
		avatarURL   sql.NullString
		walletAddr  sql.NullString
		relevance   float64
		exactMatch  bool
	)

	err := rows.Scan(
		&r.ID,
		&r.Username,
		&displayName,
		&bio,
		&avatarURL,
		&walletAddr,
		&r.IsVerified,
		&r.FollowerCount,
		&r.IsActive,
		&r.CreatedAt,
		&relevance,
		&exactMatch,
	)
	if err != nil {
		return r, err
	}

	r.DisplayName = displayName.String
	r.Bio = bio.String
	r.AvatarURL = avatarURL.String
	r.WalletAddress = walletAddr.String
	r.RelevanceScore = ranking.Clamp(relevance)

	if wallet {
		r.MatchedSnippet = ranking.Snippet(r.WalletAddress, query)
	} else if r.MatchedSnippet = ranking.Snippet(r.Bio, query); r.MatchedSnippet == "" {
		r.MatchedSnippet = ranking.Snippet(r.DisplayName, query)
	}
	return r, nil
}
