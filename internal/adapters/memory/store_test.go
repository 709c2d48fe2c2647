package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	s := NewStore()
	s.SetClock(func() time.Time { return fixedNow })
	return s
}

func params(q string) repositories.EntitySearchParams {
	return repositories.EntitySearchParams{Query: q, Limit: 10}
}

func TestCampaignSearch_ExactMatchFirst(t *testing.T) {
	s := newTestStore()
	s.PutCampaign(entities.Campaign{ID: "c1", Name: "Clean Water", IsActive: true, DonorCount: 3, CreatedAt: fixedNow.Add(-48 * time.Hour)})
	s.PutCampaign(entities.Campaign{ID: "c2", Name: "Clean Water Initiative Fund", Description: "clean water for every village", IsActive: true, IsFeatured: true, DonorCount: 900, CreatedAt: fixedNow.Add(-time.Hour)})
	s.PutCampaign(entities.Campaign{ID: "c3", Name: "Solar Panels", Description: "energy for schools", IsActive: true, DonorCount: 50, CreatedAt: fixedNow})

	page, err := s.Campaigns().Search(context.Background(), params("clean water"))
	require.NoError(t, err)

	require.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c1", page.Items[0].ID)
	assert.Equal(t, "c2", page.Items[1].ID)
	for _, item := range page.Items {
		assert.GreaterOrEqual(t, item.RelevanceScore, 0)
		assert.LessOrEqual(t, item.RelevanceScore, 100)
	}
	assert.Equal(t, "clean water for every village", page.Items[1].MatchedSnippet)
}

func TestCampaignSearch_TotalExceedsPage(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 15; i++ {
		s.PutCampaign(entities.Campaign{
			ID:        fmt.Sprintf("c%02d", i),
			Name:      fmt.Sprintf("Water well %d", i),
			IsActive:  true,
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
		})
	}

	p := params("water")
	p.Limit = 5
	page, err := s.Campaigns().Search(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 15, page.Total)
	assert.Len(t, page.Items, 5)

	p.Offset = 15
	page, err = s.Campaigns().Search(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 15, page.Total)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestCampaignSearch_Filters(t *testing.T) {
	s := newTestStore()
	ended := fixedNow.Add(-time.Hour)
	s.PutCampaign(entities.Campaign{ID: "open", Name: "Water health", Categories: []string{"Health"}, IsVerified: true, IsActive: true, GoalAmount: 500, CreatedAt: fixedNow})
	s.PutCampaign(entities.Campaign{ID: "ended", Name: "Water ended", Categories: []string{"health"}, IsVerified: true, IsActive: true, GoalAmount: 500, EndDate: &ended, CreatedAt: fixedNow})
	s.PutCampaign(entities.Campaign{ID: "unverified", Name: "Water plain", Categories: []string{"health"}, IsActive: true, GoalAmount: 500, CreatedAt: fixedNow})
	s.PutCampaign(entities.Campaign{ID: "old", Name: "Water old", Categories: []string{"health"}, IsVerified: true, IsActive: true, GoalAmount: 500, CreatedAt: fixedNow.AddDate(0, -2, 0)})
	s.PutCampaign(entities.Campaign{ID: "big", Name: "Water big", Categories: []string{"health"}, IsVerified: true, IsActive: true, GoalAmount: 50000, CreatedAt: fixedNow})

	maxGoal := 1000.0
	p := params("water")
	p.Filters = entities.SearchFilters{
		Categories:    []string{"HEALTH"},
		VerifiedOnly:  true,
		DateRange:     entities.DateRangeThisMonth,
		MaxGoalAmount: &maxGoal,
	}
	page, err := s.Campaigns().Search(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "open", page.Items[0].ID)

	inactive := false
	p.Filters.ActiveOnly = &inactive
	page, err = s.Campaigns().Search(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestCampaignSearch_SortByAmountAndDate(t *testing.T) {
	s := newTestStore()
	s.PutCampaign(entities.Campaign{ID: "a", Name: "water a", AmountRaised: 10, IsActive: true, CreatedAt: fixedNow.Add(-2 * time.Hour)})
	s.PutCampaign(entities.Campaign{ID: "b", Name: "water b", AmountRaised: 30, IsActive: true, CreatedAt: fixedNow.Add(-3 * time.Hour)})
	s.PutCampaign(entities.Campaign{ID: "c", Name: "water c", AmountRaised: 20, IsActive: true, CreatedAt: fixedNow.Add(-time.Hour)})

	ids := func(sortBy entities.SortBy) []string {
		p := params("water")
		p.SortBy = sortBy
		page, err := s.Campaigns().Search(context.Background(), p)
		require.NoError(t, err)
		var out []string
		for _, item := range page.Items {
			out = append(out, item.ID)
		}
		return out
	}

	assert.Equal(t, []string{"b", "c", "a"}, ids(entities.SortByAmount))
	assert.Equal(t, []string{"c", "a", "b"}, ids(entities.SortByDateDesc))
	assert.Equal(t, []string{"b", "a", "c"}, ids(entities.SortByDateAsc))
}

func TestUserSearch_WalletMode(t *testing.T) {
	s := newTestStore()
	s.PutUser(entities.User{ID: "u1", Username: "alice", WalletAddress: "0x1234abcd", IsActive: true, CreatedAt: fixedNow})
	s.PutUser(entities.User{ID: "u2", Username: "0x1234fan", WalletAddress: "0x9999", IsActive: true, CreatedAt: fixedNow})
	s.PutUser(entities.User{ID: "u3", Username: "bob", WalletAddress: "0x1234", IsActive: true, CreatedAt: fixedNow})

	page, err := s.Users().Search(context.Background(), params("0x1234"))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "u3", page.Items[0].ID, "exact address ranks first")
	assert.Equal(t, "u1", page.Items[1].ID)
}

func TestUserSearch_SkipsInactive(t *testing.T) {
	s := newTestStore()
	s.PutUser(entities.User{ID: "u1", Username: "waterwarrior", IsActive: true, CreatedAt: fixedNow})
	s.PutUser(entities.User{ID: "u2", Username: "waterfan", IsActive: false, CreatedAt: fixedNow})

	page, err := s.Users().Search(context.Background(), params("water"))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1", page.Items[0].ID)
}

func TestPostSearch_HashtagModeExcludesUntagged(t *testing.T) {
	s := newTestStore()
	s.PutUser(entities.User{ID: "a1", Username: "alice", IsVerified: true, IsActive: true})
	s.PutPost(entities.Post{ID: "p1", Content: "we love #food drives", AuthorID: "a1", Hashtags: []string{"food"}, CreatedAt: fixedNow})
	s.PutPost(entities.Post{ID: "p2", Content: "talking about #food here", AuthorID: "a1", CreatedAt: fixedNow})
	s.PutPost(entities.Post{ID: "p3", Content: "foodbank", AuthorID: "a1", Hashtags: []string{"foodbank"}, IsDeleted: true, CreatedAt: fixedNow})

	page, err := s.Posts().Search(context.Background(), params("#foo"))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p1", page.Items[0].ID)
	assert.Equal(t, "alice", page.Items[0].AuthorUsername)
	assert.Empty(t, page.Items[0].MatchedSnippet)

	page, err = s.Posts().Search(context.Background(), params("#"))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestHashtagSearch_ExactTagFirst(t *testing.T) {
	s := newTestStore()
	used := fixedNow.Add(-time.Hour)
	s.PutHashtag(entities.Hashtag{ID: "h1", Tag: "waterproject", UsageCount: 1000, LastUsedAt: &used})
	s.PutHashtag(entities.Hashtag{ID: "h2", Tag: "water", UsageCount: 2, LastUsedAt: &used})

	page, err := s.Hashtags().Search(context.Background(), params("#Water"))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "h2", page.Items[0].ID)
}

func TestSearch_ShortAndFailing(t *testing.T) {
	s := newTestStore()

	page, err := s.Campaigns().Search(context.Background(), params("  <>  "))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Zero(t, s.Calls(entities.EntityTypeCampaign))

	s.Fail(entities.EntityTypeUser, errors.New("boom"))
	_, err = s.Users().Search(context.Background(), params("water"))
	entityType, ok := apperrors.IsSearchBackendError(err)
	require.True(t, ok)
	assert.Equal(t, "user", entityType)

	s.Delay(entities.EntityTypePost, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Posts().Search(ctx, params("water"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCorpus_SuggestionsAndTrending(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.LogEvent(ctx, &entities.SearchEvent{Query: "Clean Water", NormalizedQuery: "clean water", ResultCount: 2}))
	require.NoError(t, s.LogEvent(ctx, &entities.SearchEvent{Query: "clean water", NormalizedQuery: "clean water", ResultCount: 1}))
	require.NoError(t, s.LogEvent(ctx, &entities.SearchEvent{Query: "nothing", NormalizedQuery: "nothing"}))
	s.PutPopularQuery("clean energy", 1, fixedNow.AddDate(0, 0, -3))

	popular, err := s.PopularQueriesByPrefix(ctx, "CLEAN", 5)
	require.NoError(t, err)
	assert.Equal(t, []entities.PopularQuery{{Term: "clean water", Count: 2}, {Term: "clean energy", Count: 1}}, popular)

	top, err := s.TopQueries(ctx, fixedNow.Add(-24*time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, []entities.PopularQuery{{Term: "clean water", Count: 2}}, top)

	similar, err := s.FindSimilarQuery(ctx, "clean watr", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "clean water", similar)

	similar, err = s.FindSimilarQuery(ctx, "clean water", 0.3)
	require.NoError(t, err)
	assert.NotEqual(t, "clean water", similar)

	require.NoError(t, s.Record(ctx, "u1", "clean water"))
	recent, err := s.ListByPrefix(ctx, "u1", "cl", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"clean water"}, recent)

	assert.Len(t, s.Events(), 3)
}
