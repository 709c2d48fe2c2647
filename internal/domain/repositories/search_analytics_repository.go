package repositories

import (
	"context"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

// SearchAnalyticsRepository is the append-only analytics sink
type SearchAnalyticsRepository interface {
	// LogEvent appends a search record and bumps the popular-queries aggregate
	LogEvent(ctx context.Context, event *entities.SearchEvent) error

	// LogClick appends a result click record
	LogClick(ctx context.Context, click *entities.ClickEvent) error
}
