package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/domain/providers"
	"github.com/fundbrave/search-service/pkg/utils"
)

const (
	clickRateLimit  = 120
	clickRateWindow = time.Minute
)

// ClickTracker records search result clicks off the request path.
type ClickTracker interface {
	TrackClick(click *entities.ClickEvent)
}

// ClickHandler accepts click-through reports from clients.
type ClickHandler struct {
	tracker ClickTracker
	cache   providers.CacheProvider
	local   *localRateLimiter
	now     func() time.Time
}

// NewClickHandler creates a new click handler. A nil cache limits per process.
func NewClickHandler(tracker ClickTracker, cache providers.CacheProvider) *ClickHandler {
	return &ClickHandler{
		tracker: tracker,
		cache:   cache,
		local:   newLocalRateLimiter(),
		now:     time.Now,
	}
}

type clickRequest struct {
	Query      string `json:"query"`
	ResultID   string `json:"result_id"`
	ResultType string `json:"result_type"`
	Position   *int   `json:"position,omitempty"`
}

// TrackClick handles POST /api/search/click
func (h *ClickHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	var payload clickRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	// Stored normalized so clicks join with the normalized query of the search records
	payload.Query = utils.NormalizeQuery(payload.Query)
	payload.ResultID = strings.TrimSpace(payload.ResultID)
	if payload.Query == "" || payload.ResultID == "" {
		respondWithError(w, http.StatusBadRequest, "query and result_id are required")
		return
	}
	resultType, ok := entities.ParseEntityType(payload.ResultType)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "result_type must be one of campaign, user, post, hashtag")
		return
	}
	if payload.Position != nil && *payload.Position < 0 {
		respondWithError(w, http.StatusBadRequest, "position must be non-negative")
		return
	}

	allowed, retryAfter := h.allowRequest(r.Context(), "search:click:rate:"+clientIP(r))
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	h.tracker.TrackClick(&entities.ClickEvent{
		Query:      payload.Query,
		ResultID:   payload.ResultID,
		ResultType: resultType,
		UserID:     strings.TrimSpace(r.Header.Get(UserIDHeader)),
		Position:   payload.Position,
	})

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

// allowRequest counts the request in a fixed window that starts with the
// first request; the window never slides while a client keeps sending.
func (h *ClickHandler) allowRequest(ctx context.Context, key string) (bool, time.Duration) {
	now := h.now()
	if h.cache == nil {
		return h.local.allow(key, clickRateLimit, clickRateWindow, now)
	}

	var state rateLimitState
	if data, err := h.cache.Get(ctx, key); err == nil {
		_ = json.Unmarshal(data, &state)
	}
	if state.ResetAt.IsZero() || !now.Before(state.ResetAt) {
		state = rateLimitState{ResetAt: now.Add(clickRateWindow)}
	}

	remaining := state.ResetAt.Sub(now)
	if state.Count >= clickRateLimit {
		return false, remaining
	}

	state.Count++
	data, _ := json.Marshal(state)
	if err := h.cache.Set(ctx, key, data, remaining); err != nil {
		return h.local.allow(key, clickRateLimit, clickRateWindow, now)
	}
	return true, remaining
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

type rateLimitState struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[key]
	if !ok || !now.Before(state.resetAt) {
		state = &localRateState{resetAt: now.Add(window)}
		l.states[key] = state
	}

	remaining := state.resetAt.Sub(now)
	if state.count >= limit {
		return false, remaining
	}

	state.count++
	return true, remaining
}
