package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fundbrave/search-service/internal/domain/entities"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
	apperrors "github.com/fundbrave/search-service/pkg/errors"
)

// UserIDHeader carries the authenticated user id set by the gateway
const UserIDHeader = "X-User-ID"

// SearchService defines the search operations used by the handler.
type SearchService interface {
	Search(ctx context.Context, q entities.SearchQuery) (*entities.SearchResults, error)
}

// SuggestionService defines the autocomplete operations used by the handler.
type SuggestionService interface {
	Suggest(ctx context.Context, prefix string, limit int, includeRecent bool, userID string) *entities.SuggestionsResponse
}

// TrendingService defines the trending operations used by the handler.
type TrendingService interface {
	GetTrending(ctx context.Context) (*entities.TrendingSnapshot, error)
}

// SearchHandler handles unified search HTTP requests
type SearchHandler struct {
	search      SearchService
	suggestions SuggestionService
	trending    TrendingService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search SearchService, suggestions SuggestionService, trending TrendingService) *SearchHandler {
	return &SearchHandler{
		search:      search,
		suggestions: suggestions,
		trending:    trending,
	}
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	results, err := h.search.Search(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, results)
}

// GetTrending handles GET /api/search/trending
func (h *SearchHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.trending.GetTrending(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// GetSuggestions handles GET /api/search/suggestions
func (h *SearchHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	limit, err := intParam(params.Get("limit"), "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	includeRecent := true
	if raw := params.Get("include_recent"); raw != "" {
		if includeRecent, err = strconv.ParseBool(raw); err != nil {
			respondWithError(w, http.StatusBadRequest, "include_recent must be a boolean")
			return
		}
	}

	resp := h.suggestions.Suggest(r.Context(), params.Get("q"), limit, includeRecent, r.Header.Get(UserIDHeader))
	respondWithJSON(w, http.StatusOK, resp)
}

// parseSearchQuery maps query parameters onto a SearchQuery. Bad enum,
// number, boolean or date values are validation errors.
func parseSearchQuery(r *http.Request) (entities.SearchQuery, error) {
	params := r.URL.Query()
	q := entities.SearchQuery{
		Text:      params.Get("q"),
		UserID:    strings.TrimSpace(r.Header.Get(UserIDHeader)),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}

	var ok bool
	if q.Scope, ok = entities.ParseSearchScope(params.Get("scope")); !ok {
		return q, apperrors.NewValidationError("scope must be one of ALL, CAMPAIGNS, USERS, POSTS, HASHTAGS")
	}
	if q.SortBy, ok = entities.ParseSortBy(params.Get("sort_by")); !ok {
		return q, apperrors.NewValidationError("sort_by must be one of RELEVANCE, DATE_DESC, DATE_ASC, POPULARITY, AMOUNT")
	}

	var err error
	if q.Limit, err = intParam(params.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(params.Get("offset"), "offset"); err != nil {
		return q, err
	}

	f := &q.Filters
	for _, raw := range params["categories"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}
	if raw := params.Get("verified_only"); raw != "" {
		if f.VerifiedOnly, err = strconv.ParseBool(raw); err != nil {
			return q, apperrors.NewValidationError("verified_only must be a boolean")
		}
	}
	if raw := params.Get("active_only"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return q, apperrors.NewValidationError("active_only must be a boolean")
		}
		f.ActiveOnly = &active
	}
	if f.DateRange, ok = entities.ParseDateRange(params.Get("date_range")); !ok {
		return q, apperrors.NewValidationError("date_range must be one of TODAY, THIS_WEEK, THIS_MONTH, THIS_YEAR, CUSTOM")
	}
	if f.DateFrom, err = timeParam(params.Get("date_from"), "date_from"); err != nil {
		return q, err
	}
	if f.DateTo, err = timeParam(params.Get("date_to"), "date_to"); err != nil {
		return q, err
	}
	if (f.DateFrom != nil || f.DateTo != nil) && f.DateRange == "" {
		f.DateRange = entities.DateRangeCustom
	}
	if f.MinGoalAmount, err = floatParam(params.Get("min_goal_amount"), "min_goal_amount"); err != nil {
		return q, err
	}
	if f.MaxGoalAmount, err = floatParam(params.Get("max_goal_amount"), "max_goal_amount"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError(name + " must be a non-negative integer")
	}
	return v, nil
}

func floatParam(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperrors.NewValidationError(name + " must be a non-negative number")
	}
	return &v, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates
func timeParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError(name + " must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// respondWithAppError maps typed errors to status codes. Unavailable and
// unexpected errors never leak their cause to the client.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, errorMessage(err))
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, errorMessage(err))
	case apperrors.ErrorTypeUnavailable:
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("search unavailable")
		respondWithError(w, http.StatusServiceUnavailable, "search temporarily unavailable")
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
