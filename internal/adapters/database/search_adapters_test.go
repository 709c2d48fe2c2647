package database

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// recordingMatcher matches like the default regexp matcher and keeps the SQL it saw
type recordingMatcher struct {
	mu      sync.Mutex
	queries []string
}

func (m *recordingMatcher) Match(expectedSQL, actualSQL string) error {
	m.mu.Lock()
	m.queries = append(m.queries, actualSQL)
	m.mu.Unlock()
	return sqlmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL)
}

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock, *recordingMatcher) {
	t.Helper()
	matcher := &recordingMatcher{}
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock, matcher
}

func countRows(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

var campaignColumns = []string{
	"id", "name", "description", "categories", "goal_amount", "amount_raised", "donor_count",
	"image_url", "is_featured", "is_verified", "is_active", "creator_id", "end_date", "created_at",
	"relevance", "exact_match",
}

func TestCampaignSearch_CountsAndPages(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	adapter := NewCampaignSearchAdapter(client, NewTextSearch(true))
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "campaigns" AS "c"`).WillReturnRows(countRows(12))
	mock.ExpectQuery(`SELECT "c"\."id", "c"\."name".* AS "relevance", .* AS "exact_match" FROM "campaigns" AS "c" WHERE .* ORDER BY "exact_match" DESC, "relevance" DESC, "c"\."donor_count" DESC, "c"\."created_at" DESC, "c"\."id" ASC LIMIT \$\d+`).
		WillReturnRows(sqlmock.NewRows(campaignColumns).
			AddRow("c1", "clean water", nil, "{water}", 1000.0, 200.0, 3, nil, false, true, true, "u1", nil, created, 300.4, true).
			AddRow("c2", "Clean Water for Rural Communities", "Wells and filters", "{water,health}", 5000.0, 4000.0, 900, "https://img", true, true, true, "u2", nil, created, 97.6, false))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "clean water", Limit: 2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Items, 2)
	assert.Greater(t, page.Total, len(page.Items))

	assert.Equal(t, "c1", page.Items[0].ID)
	assert.Equal(t, 100, page.Items[0].RelevanceScore)
	assert.Equal(t, "clean water", page.Items[0].MatchedSnippet)
	assert.Equal(t, 98, page.Items[1].RelevanceScore)
	assert.Equal(t, []string{"water", "health"}, page.Items[1].Categories)
	assert.Equal(t, "https://img", page.Items[1].ImageURL)

	for _, q := range matcher.queries {
		assert.NotContains(t, q, "clean water", "user text must be bound, not inlined")
		assert.Contains(t, q, "similarity(c.name")
	}
}

func TestCampaignSearch_EmptyResultSkipsPageQuery(t *testing.T) {
	client, mock, _ := newMockClient(t)
	adapter := NewCampaignSearchAdapter(client, NewTextSearch(true))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "campaigns"`).WillReturnRows(countRows(0))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "nothing here"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestCampaignSearch_FiltersRendered(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	adapter := NewCampaignSearchAdapter(client, NewTextSearch(true))

	minGoal := 100.0
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "campaigns"`).WillReturnRows(countRows(0))

	_, err := adapter.Search(context.Background(), repositories.EntitySearchParams{
		Query: "solar",
		Filters: entities.SearchFilters{
			Categories:    []string{"Energy"},
			VerifiedOnly:  true,
			DateRange:     entities.DateRangeThisWeek,
			MinGoalAmount: &minGoal,
		},
	})
	require.NoError(t, err)
	require.Len(t, matcher.queries, 1)

	sql := matcher.queries[0]
	assert.Contains(t, sql, "lower(cat) = ANY(")
	assert.Contains(t, sql, `"c"."is_verified" IS TRUE`)
	assert.Contains(t, sql, `"c"."created_at" >= $`)
	assert.Contains(t, sql, `"c"."goal_amount" >= $`)
	assert.Contains(t, sql, `"c"."is_active" IS TRUE`)
	assert.Contains(t, sql, `"c"."end_date" IS NULL`)
}

func TestCampaignSearch_BackendFailureCarriesEntityType(t *testing.T) {
	client, mock, _ := newMockClient(t)
	adapter := NewCampaignSearchAdapter(client, NewTextSearch(true))

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(errors.New("connection refused"))

	_, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "water"})
	require.Error(t, err)

	entityType, ok := apperrors.IsSearchBackendError(err)
	assert.True(t, ok)
	assert.Equal(t, "campaign", entityType)
}

func TestCampaignSearch_FallsBackWhenTrigramMissing(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	text := NewTextSearch(true)
	adapter := NewCampaignSearchAdapter(client, text)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(&pq.Error{Code: "42883", Message: "function similarity(text, unknown) does not exist"})
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnRows(countRows(0))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "water"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, page.Total)
	assert.False(t, text.Trigram())

	require.Len(t, matcher.queries, 2)
	assert.Contains(t, matcher.queries[0], "similarity(")
	assert.NotContains(t, matcher.queries[1], "similarity(")
	assert.Contains(t, matcher.queries[1], "plainto_tsquery")
}

func TestUserSearch_WalletMode(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	adapter := NewUserSearchAdapter(client, NewTextSearch(true))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users" AS "u"`).WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM "users" AS "u"`).WillReturnRows(sqlmock.NewRows([]string{
		"id", "username", "display_name", "bio", "avatar_url", "wallet_address",
		"is_verified", "follower_count", "is_active", "created_at", "relevance", "exact_match",
	}).AddRow("u1", "alice", "0x1234 fan", nil, nil, "0x1234abcd", true, 50, true, time.Now(), 60.5, false))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "0x1234"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "0x1234abcd", page.Items[0].WalletAddress)
	assert.Equal(t, "0x1234abcd", page.Items[0].MatchedSnippet)

	for _, q := range matcher.queries {
		assert.Contains(t, q, "lower(coalesce(u.wallet_address, '')) LIKE")
		assert.NotContains(t, q, "similarity(")
		assert.NotContains(t, q, "ts_rank")
		assert.NotContains(t, q, "display_name ILIKE")
	}
}

func TestUserSearch_TextModeBlendsNames(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	adapter := NewUserSearchAdapter(client, NewTextSearch(true))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users"`).WillReturnRows(countRows(0))

	_, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "alice", SortBy: entities.SortByAmount})
	require.NoError(t, err)
	require.Len(t, matcher.queries, 1)
	assert.Contains(t, matcher.queries[0], "similarity(u.username")
	assert.Contains(t, matcher.queries[0], `"u"."is_active" IS TRUE`)
}

func TestPostSearch_HashtagMode(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	adapter := NewPostSearchAdapter(client, NewTextSearch(true))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "posts" AS "p" LEFT JOIN "users" AS "a"`).WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM "posts" AS "p"`).WillReturnRows(sqlmock.NewRows([]string{
		"id", "content", "author_id", "author_username", "author_verified", "likes_count",
		"comments_count", "shares_count", "engagement_score", "media_url", "hashtags", "created_at",
		"relevance", "exact_match",
	}).AddRow("p1", "Day 3 of the drive", "u1", "alice", true, 40, 2, 1, 12.5, nil, "{foo}", time.Now(), 5.25, false))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "#foo"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []string{"foo"}, page.Items[0].Hashtags)
	assert.Equal(t, "alice", page.Items[0].AuthorUsername)
	assert.Empty(t, page.Items[0].MatchedSnippet)

	for _, q := range matcher.queries {
		assert.Contains(t, q, "ph.post_id = p.id AND lower(h.tag) LIKE")
		assert.NotContains(t, q, "ts_rank")
		assert.NotContains(t, q, "plainto_tsquery")
		assert.NotContains(t, q, "similarity(")
	}
}

func TestPostSearch_BareHashIsEmpty(t *testing.T) {
	client, mock, _ := newMockClient(t)
	adapter := NewPostSearchAdapter(client, NewTextSearch(true))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "#"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHashtagSearch_StripsHash(t *testing.T) {
	client, mock, matcher := newMockClient(t)
	adapter := NewHashtagSearchAdapter(client, NewTextSearch(false))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "hashtags" AS "h"`).
		WillReturnRows(countRows(1))
	mock.ExpectQuery(`ORDER BY "exact_match" DESC, "relevance" DESC, "h"\."usage_count" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tag", "usage_count", "last_used_at", "created_at", "relevance", "exact_match"}).
			AddRow("h1", "water", 320, time.Now(), time.Now(), 156.4, true))

	page, err := adapter.Search(context.Background(), repositories.EntitySearchParams{Query: "#Water"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 100, page.Items[0].RelevanceScore)
	assert.NotNil(t, page.Items[0].LastUsedAt)

	for _, q := range matcher.queries {
		assert.NotContains(t, q, "similarity(")
	}
}

func TestOrderFor(t *testing.T) {
	cols := sortColumns{created: "x.created_at", id: "x.id"}
	ds := dialect.From("x")

	render := func(sortBy entities.SortBy, cols sortColumns) string {
		sql, _, err := ds.Order(orderFor(sortBy, cols)...).ToSQL()
		require.NoError(t, err)
		return sql[strings.Index(sql, "ORDER BY"):]
	}

	cols.popularity = goqu.I("x.likes")
	assert.Equal(t, `ORDER BY "x"."created_at" DESC, "x"."id" ASC`, render(entities.SortByDateDesc, cols))
	assert.Equal(t, `ORDER BY "x"."created_at" ASC, "x"."id" ASC`, render(entities.SortByDateAsc, cols))
	assert.Equal(t, `ORDER BY "x"."likes" DESC, "x"."created_at" DESC, "x"."id" ASC`, render(entities.SortByAmount, cols))

	cols.amount = goqu.I("x.raised")
	assert.Equal(t, `ORDER BY "x"."raised" DESC, "x"."created_at" DESC, "x"."id" ASC`, render(entities.SortByAmount, cols))
}

func TestDetectTextSearch(t *testing.T) {
	client, mock, _ := newMockClient(t)
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	text, err := DetectTextSearch(context.Background(), client)
	require.NoError(t, err)
	assert.False(t, text.Trigram())
}
