// Package memory is an in-process entity store used for local development
// (SEARCH_STORE=memory) and by the service tests. It ranks candidates with
// the same ranking profiles the PostgreSQL adapters render into SQL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/repositories"
)

// Store keeps every searchable collection plus the analytics and
// suggestion corpora in memory.
type Store struct {
	mu sync.RWMutex

	campaigns map[string]entities.Campaign
	users     map[string]entities.User
	posts     map[string]entities.Post
	hashtags  map[string]entities.Hashtag

	popular map[string]*popularEntry
	recent  map[string]map[string]time.Time

	events []entities.SearchEvent
	clicks []entities.ClickEvent

	failures map[entities.EntityType]error
	delays   map[entities.EntityType]time.Duration
	calls    map[entities.EntityType]int

	now func() time.Time
}

type popularEntry struct {
	count        int
	lastSearched time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		campaigns: make(map[string]entities.Campaign),
		users:     make(map[string]entities.User),
		posts:     make(map[string]entities.Post),
		hashtags:  make(map[string]entities.Hashtag),
		popular:   make(map[string]*popularEntry),
		recent:    make(map[string]map[string]time.Time),
		failures:  make(map[entities.EntityType]error),
		delays:    make(map[entities.EntityType]time.Duration),
		calls:     make(map[entities.EntityType]int),
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// PutCampaign inserts or replaces a campaign
func (s *Store) PutCampaign(c entities.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

// PutUser inserts or replaces a user
func (s *Store) PutUser(u entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutPost inserts or replaces a post
func (s *Store) PutPost(p entities.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
}

// PutHashtag inserts or replaces a hashtag
func (s *Store) PutHashtag(h entities.Hashtag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashtags[h.ID] = h
}

// PutPopularQuery seeds the popular-queries corpus
func (s *Store) PutPopularQuery(term string, count int, lastSearched time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popular[term] = &popularEntry{count: count, lastSearched: lastSearched}
}

// Remove deletes an entity of any type
func (s *Store) Remove(entityType entities.EntityType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch entityType {
	case entities.EntityTypeCampaign:
		delete(s.campaigns, id)
	case entities.EntityTypeUser:
		delete(s.users, id)
	case entities.EntityTypePost:
		delete(s.posts, id)
	case entities.EntityTypeHashtag:
		delete(s.hashtags, id)
	}
}

// Fail makes every search of entityType return err; nil clears it
func (s *Store) Fail(entityType entities.EntityType, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, entityType)
		return
	}
	s.failures[entityType] = err
}

// Delay makes searches of entityType wait d or until the context ends
func (s *Store) Delay(entityType entities.EntityType, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[entityType] = d
}

// Calls returns how many searches hit entityType
func (s *Store) Calls(entityType entities.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[entityType]
}

// Events returns a copy of the logged search events
func (s *Store) Events() []entities.SearchEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.SearchEvent(nil), s.events...)
}

// Clicks returns a copy of the logged clicks
func (s *Store) Clicks() []entities.ClickEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.ClickEvent(nil), s.clicks...)
}

// Campaigns returns the campaign search repository
func (s *Store) Campaigns() repositories.CampaignSearchRepository {
	return campaignSearch{s}
}

// Users returns the user search repository
func (s *Store) Users() repositories.UserSearchRepository {
	return userSearch{s}
}

// Posts returns the post search repository
func (s *Store) Posts() repositories.PostSearchRepository {
	return postSearch{s}
}

// Hashtags returns the hashtag search repository
func (s *Store) Hashtags() repositories.HashtagSearchRepository {
	return hashtagSearch{s}
}

// begin records the call, then applies any injected delay and failure
func (s *Store) begin(ctx context.Context, entityType entities.EntityType) error {
	s.mu.Lock()
	s.calls[entityType]++
	delay := s.delays[entityType]
	err := s.failures[entityType]
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
