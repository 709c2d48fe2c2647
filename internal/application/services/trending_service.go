package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/providers"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
	"github.com/fundbrave/search-service/pkg/config"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// TrendingService serves and refreshes the trending snapshot
type TrendingService struct {
	repo    repositories.TrendingRepository
	cache   providers.CacheProvider
	cfg     config.SearchConfig
	metrics *observability.Metrics
	now     func() time.Time
}

// NewTrendingService creates a new trending service
func NewTrendingService(
	repo repositories.TrendingRepository,
	cache providers.CacheProvider,
	cfg config.SearchConfig,
	metrics *observability.Metrics,
) *TrendingService {
	return &TrendingService{
		repo:    repo,
		cache:   cache,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// GetTrending returns the cached snapshot, rebuilding it on a miss
func (s *TrendingService) GetTrending(ctx context.Context) (*entities.TrendingSnapshot, error) {
	var snapshot entities.TrendingSnapshot
	if getJSON(ctx, s.cache, TrendingCacheKey, &snapshot) {
		observability.RecordCacheHit(ctx, s.metrics, "trending")
		return &snapshot, nil
	}
	observability.RecordCacheMiss(ctx, s.metrics, "trending")
	return s.Refresh(ctx)
}

// Refresh recomputes every section concurrently. A snapshot with a failed
// section is returned but not cached; all sections failing is an error.
func (s *TrendingService) Refresh(ctx context.Context) (*entities.TrendingSnapshot, error) {
	snapshot := &entities.TrendingSnapshot{
		TrendingQueries:  []entities.PopularQuery{},
		PopularHashtags:  []entities.Hashtag{},
		PopularCampaigns: []entities.Campaign{},
		CachedAt:         s.now().UTC(),
	}
	since := snapshot.CachedAt.Add(-s.cfg.TrendingWindow)
	limit := s.cfg.TrendingLimit

	var (
		g          errgroup.Group
		queriesErr error
		tagsErr    error
		campErr    error
	)
	g.Go(func() error {
		queries, err := s.repo.TopQueries(ctx, since, limit)
		if queriesErr = err; err == nil {
			snapshot.TrendingQueries = queries
		}
		return nil
	})
	g.Go(func() error {
		tags, err := s.repo.TopHashtags(ctx, since, limit)
		if tagsErr = err; err == nil {
			snapshot.PopularHashtags = tags
		}
		return nil
	})
	g.Go(func() error {
		campaigns, err := s.repo.TopCampaigns(ctx, limit)
		if campErr = err; err == nil {
			snapshot.PopularCampaigns = campaigns
		}
		return nil
	})
	_ = g.Wait()

	if queriesErr != nil && tagsErr != nil && campErr != nil {
		return nil, apperrors.NewUnavailableError("trending temporarily unavailable", errors.Join(queriesErr, tagsErr, campErr))
	}
	if err := errors.Join(queriesErr, tagsErr, campErr); err != nil {
		log.Warn().Err(err).Msg("trending snapshot is partial, not caching it")
		return snapshot, nil
	}

	setJSON(ctx, s.cache, TrendingCacheKey, snapshot, s.cfg.TrendingTTL)
	return snapshot, nil
}

// StartPeriodicRefresh rebuilds the snapshot now and then on every tick until ctx is done
func (s *TrendingService) StartPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if _, err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial trending refresh failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopping trending refresh")
				return
			case <-ticker.C:
				if _, err := s.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("periodic trending refresh failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("started periodic trending refresh")
}
