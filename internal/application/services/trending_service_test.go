package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fundbrave/search-service/internal/adapters/memory"
	"github.com/fundbrave/search-service/internal/application/services"
	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/providers"
	"github.com/fundbrave/search-service/pkg/config"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// MockTrendingRepository is a testify mock of repositories.TrendingRepository
type MockTrendingRepository struct {
	mock.Mock
}

func (m *MockTrendingRepository) TopHashtags(ctx context.Context, since time.Time, limit int) ([]entities.Hashtag, error) {
	args := m.Called(ctx, since, limit)
	tags, _ := args.Get(0).([]entities.Hashtag)
	return tags, args.Error(1)
}

func (m *MockTrendingRepository) TopCampaigns(ctx context.Context, limit int) ([]entities.Campaign, error) {
	args := m.Called(ctx, limit)
	campaigns, _ := args.Get(0).([]entities.Campaign)
	return campaigns, args.Error(1)
}

func (m *MockTrendingRepository) TopQueries(ctx context.Context, since time.Time, limit int) ([]entities.PopularQuery, error) {
	args := m.Called(ctx, since, limit)
	queries, _ := args.Get(0).([]entities.PopularQuery)
	return queries, args.Error(1)
}

func TestTrendingService_GetTrending(t *testing.T) {
	store := memory.NewStore()
	store.SetClock(func() time.Time { return testNow })
	recent := time.Now().Add(-time.Hour)
	stale := time.Now().Add(-72 * time.Hour)
	store.PutHashtag(entities.Hashtag{ID: "h1", Tag: "water", UsageCount: 8, LastUsedAt: &recent})
	store.PutHashtag(entities.Hashtag{ID: "h2", Tag: "old", UsageCount: 99, LastUsedAt: &stale})
	store.PutPopularQuery("clean water", 5, recent)
	store.PutCampaign(entities.Campaign{ID: "c1", Name: "Wells", IsActive: true, DonorCount: 3, CreatedAt: testNow})
	store.PutCampaign(entities.Campaign{ID: "c2", Name: "Books", IsActive: true, IsFeatured: true, CreatedAt: testNow})

	c := newLRU(t)
	service := services.NewTrendingService(store, c, config.DefaultSearchConfig(), nil)

	snapshot, err := service.GetTrending(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.PopularHashtags, 1)
	assert.Equal(t, "water", snapshot.PopularHashtags[0].Tag)
	require.Len(t, snapshot.TrendingQueries, 1)
	assert.Equal(t, "clean water", snapshot.TrendingQueries[0].Term)
	require.Len(t, snapshot.PopularCampaigns, 2)
	assert.Equal(t, "c2", snapshot.PopularCampaigns[0].ID, "featured first")
	assert.False(t, snapshot.CachedAt.IsZero())

	_, err = c.Get(context.Background(), services.TrendingCacheKey)
	require.NoError(t, err)

	store.PutPopularQuery("new term", 50, recent)
	cached, err := service.GetTrending(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached.TrendingQueries, 1, "served from cache")
	assert.True(t, snapshot.CachedAt.Equal(cached.CachedAt))
}

func TestTrendingService_PartialSnapshotNotCached(t *testing.T) {
	repo := new(MockTrendingRepository)
	repo.On("TopQueries", mock.Anything, mock.Anything, 10).Return(nil, errors.New("timeout"))
	repo.On("TopHashtags", mock.Anything, mock.Anything, 10).Return([]entities.Hashtag{{Tag: "water"}}, nil)
	repo.On("TopCampaigns", mock.Anything, 10).Return([]entities.Campaign{{ID: "c1"}}, nil)

	c := newLRU(t)
	service := services.NewTrendingService(repo, c, config.DefaultSearchConfig(), nil)

	snapshot, err := service.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snapshot.TrendingQueries)
	assert.Empty(t, snapshot.TrendingQueries)
	assert.Len(t, snapshot.PopularHashtags, 1)

	_, err = c.Get(context.Background(), services.TrendingCacheKey)
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestTrendingService_AllSectionsFailing(t *testing.T) {
	repo := new(MockTrendingRepository)
	repo.On("TopQueries", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("down"))
	repo.On("TopHashtags", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("down"))
	repo.On("TopCampaigns", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	service := services.NewTrendingService(repo, newLRU(t), config.DefaultSearchConfig(), nil)

	_, err := service.GetTrending(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.TypeOf(err))
}

func TestTrendingService_StartPeriodicRefresh(t *testing.T) {
	var calls atomic.Int32
	repo := new(MockTrendingRepository)
	repo.On("TopQueries", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return([]entities.PopularQuery{}, nil)
	repo.On("TopHashtags", mock.Anything, mock.Anything, mock.Anything).Return([]entities.Hashtag{}, nil)
	repo.On("TopCampaigns", mock.Anything, mock.Anything).Return([]entities.Campaign{}, nil)

	service := services.NewTrendingService(repo, newLRU(t), config.DefaultSearchConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	service.StartPeriodicRefresh(ctx, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "refreshes once up front")

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
}
