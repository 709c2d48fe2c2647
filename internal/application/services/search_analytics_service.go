package services

import (
	"context"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
)

// SearchAnalyticsService records searches and clicks off the request path
type SearchAnalyticsService struct {
	repo  repositories.SearchAnalyticsRepository
	tasks *BackgroundTasks
}

// NewSearchAnalyticsService creates a new search analytics service
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository, tasks *BackgroundTasks) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo, tasks: tasks}
}

// TrackSearch queues the search record; failures are logged, never returned
func (s *SearchAnalyticsService) TrackSearch(event *entities.SearchEvent) {
	s.tasks.Go("track_search", func(ctx context.Context) error {
		return s.repo.LogEvent(ctx, event)
	})
}

// TrackClick queues the click record; failures are logged, never returned
func (s *SearchAnalyticsService) TrackClick(click *entities.ClickEvent) {
	s.tasks.Go("track_click", func(ctx context.Context) error {
		return s.repo.LogClick(ctx, click)
	})
}
