package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/providers"
)

// CacheInvalidationService handles cache invalidation based on events
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelEntityUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to entity updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Info().Str("channel", providers.EventChannelEntityUpdates).Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	<-s.done
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.EntityChangedEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent purges cached searches only when content was removed. Created
// and updated entities show up once the short result TTL expires.
func (s *CacheInvalidationService) handleEvent(event *entities.EntityChangedEvent) {
	if !event.RemovesContent() {
		log.Debug().
			Str("event_id", event.ID).
			Str("entity_type", string(event.EntityType)).
			Str("change", string(event.Change)).
			Msg("entity change left to cache ttl")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.InvalidateSearchCaches(ctx); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Str("entity_id", event.EntityID).Msg("failed to invalidate search caches")
		return
	}
	log.Info().
		Str("entity_type", string(event.EntityType)).
		Str("entity_id", event.EntityID).
		Str("change", string(event.Change)).
		Msg("invalidated search caches")
}

// InvalidateSearchCaches drops every cached result set, suggestion list and the trending snapshot
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	for _, pattern := range []string{SearchCachePattern, SuggestionCachePrefix + "*"} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
	}
	if err := s.cache.Delete(ctx, TrendingCacheKey); err != nil {
		return fmt.Errorf("failed to invalidate trending snapshot: %w", err)
	}
	return nil
}
