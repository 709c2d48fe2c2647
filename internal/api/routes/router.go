package routes

import (
	"net/http"

	"github.com/fundbrave/search-service/internal/api/handlers"
	"github.com/fundbrave/search-service/internal/api/middleware"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler *handlers.SearchHandler
	clickHandler  *handlers.ClickHandler

	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	clickHandler *handlers.ClickHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		searchHandler: searchHandler,
		clickHandler:  clickHandler,
		metrics:       metrics,
	}
}

// WithAllowedOrigins restricts CORS to the given origins
func (r *Router) WithAllowedOrigins(origins []string) *Router {
	r.allowedOrigins = origins
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/search/trending", r.searchHandler.GetTrending)
	r.mux.HandleFunc("GET /api/search/suggestions", r.searchHandler.GetSuggestions)

	// Analytics endpoints
	if r.clickHandler != nil {
		r.mux.HandleFunc("POST /api/search/click", r.clickHandler.TrackClick)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}
