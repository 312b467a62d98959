package routes

import (
	"net/http"

	"github.com/zatekoja/careslot/internal/api/handlers"
	"github.com/zatekoja/careslot/internal/api/middleware"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

// Options carries the optional collaborators of the router
type Options struct {
	// ProviderRepo backs the per-request dataloaders when set
	ProviderRepo repositories.ProviderRepository

	// Cache enables response caching for cacheable routes when set
	Cache *middleware.CacheMiddleware

	Metrics            *observability.Metrics
	DefaultRequesterID string
	AllowedOrigins     []string
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	providerHandler     *handlers.ProviderHandler
	appointmentHandler  *handlers.AppointmentHandler
	notificationHandler *handlers.NotificationHandler
	healthHandler       *handlers.HealthHandler

	opts Options
}

// NewRouter creates a new router
func NewRouter(
	providerHandler *handlers.ProviderHandler,
	appointmentHandler *handlers.AppointmentHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	opts Options,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		providerHandler:     providerHandler,
		appointmentHandler:  appointmentHandler,
		notificationHandler: notificationHandler,
		healthHandler:       healthHandler,
		opts:                opts,
	}
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, middleware.Route(h))
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health endpoints
	r.handle("GET /health", r.healthHandler.Health)
	r.handle("GET /ready", r.healthHandler.Ready)

	// Provider discovery
	r.handle("GET /api/specialties", r.providerHandler.ListSpecialties)
	r.handle("GET /api/providers/search", r.providerHandler.SearchProviders)
	r.handle("GET /api/providers/{id}", r.providerHandler.GetProvider)
	r.handle("GET /api/providers/{id}/availability", r.providerHandler.GetAvailability)

	// Appointments
	r.handle("POST /api/appointments", r.appointmentHandler.BookAppointment)
	r.handle("GET /api/appointments", r.appointmentHandler.ListMyAppointments)
	r.handle("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	r.handle("PUT /api/appointments/{id}", r.appointmentHandler.UpdateAppointment)
	r.handle("DELETE /api/appointments/{id}", r.appointmentHandler.CancelAppointment)

	// Notifications
	r.handle("POST /api/notifications", r.notificationHandler.RequestNotification)

	// Paths used by the existing web client
	r.handle("GET /api/doctors/search", r.providerHandler.SearchProviders)
	r.handle("GET /api/doctors/{id}", r.providerHandler.GetProvider)
	r.handle("GET /api/doctors/{id}/availability", r.providerHandler.GetAvailability)
	r.handle("GET /api/appointments/user", r.appointmentHandler.ListMyAppointments)
	r.handle("POST /api/notifications/send", r.notificationHandler.RequestNotification)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.Requester(r.opts.DefaultRequesterID)(handler)

	if r.opts.ProviderRepo != nil {
		handler = middleware.Loaders(r.opts.ProviderRepo)(handler)
	}

	if r.opts.Cache != nil {
		handler = r.opts.Cache.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.opts.Metrics)(handler)
	handler = middleware.RequestID(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORS(r.opts.AllowedOrigins)(handler)

	return handler
}
