package routes

import (
	"net/http"

	"github.com/cibounipi/mensabot/internal/api/handlers"
	"github.com/cibounipi/mensabot/internal/api/middleware"
	"github.com/cibounipi/mensabot/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	queryHandler *handlers.QueryHandler
	adminHandler *handlers.AdminHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router. adminHandler and cacheMiddleware may be nil.
func NewRouter(
	queryHandler *handlers.QueryHandler,
	adminHandler *handlers.AdminHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		queryHandler:    queryHandler,
		adminHandler:    adminHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
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

	// Menu and dish endpoints
	r.mux.HandleFunc("GET /api/menu", r.queryHandler.GetMenu)
	r.mux.HandleFunc("GET /api/dishes/occurrences", r.queryHandler.GetOccurrences)
	r.mux.HandleFunc("GET /api/dishes/search", r.queryHandler.SearchDishes)
	r.mux.HandleFunc("GET /api/inline", r.queryHandler.InlineQuery)

	// Facility endpoints
	r.mux.HandleFunc("GET /api/facilities", r.queryHandler.ListFacilities)
	r.mux.HandleFunc("GET /api/facilities/{id}", r.queryHandler.GetFacility)
	r.mux.HandleFunc("GET /api/facilities/{id}/schedule", r.queryHandler.GetSchedule)

	// Rate endpoints
	r.mux.HandleFunc("GET /api/rates", r.queryHandler.GetRates)

	// Navigation tokens sent back by the transport
	r.mux.HandleFunc("POST /api/actions", r.queryHandler.HandleAction)

	if r.adminHandler != nil {
		r.mux.HandleFunc("POST /api/admin/reload", r.adminHandler.Reload)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	return handler
}
