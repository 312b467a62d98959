package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/pkg/config"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
	"github.com/zatekoja/careslot/pkg/geo"
)

// ProviderService defines the provider catalog operations the handler needs
type ProviderService interface {
	ListSpecialties() []entities.Specialty
	GetProvider(ctx context.Context, id string) (*entities.Provider, error)
	GetAvailability(ctx context.Context, id string, dateRange entities.DateRange) ([]entities.DayAvailability, error)
}

// SearchService defines the provider search operation
type SearchService interface {
	Search(ctx context.Context, query services.SearchQuery) (*services.SearchResult, error)
}

// ProviderHandler handles provider discovery requests
type ProviderHandler struct {
	providers ProviderService
	search    SearchService
	defaults  config.SearchConfig
}

// NewProviderHandler creates a new provider handler. defaults supply the
// radius and limit when a search omits them.
func NewProviderHandler(providers ProviderService, search SearchService, defaults config.SearchConfig) *ProviderHandler {
	return &ProviderHandler{
		providers: providers,
		search:    search,
		defaults:  defaults,
	}
}

// ListSpecialties handles GET /api/specialties
func (h *ProviderHandler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.providers.ListSpecialties())
}

// SearchProviders handles GET /api/providers/search
func (h *ProviderHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseSearchQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.search.Search(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetProvider handles GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.GetProvider(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}

// GetAvailability handles GET /api/providers/{id}/availability
func (h *ProviderHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	dateRange := entities.DateRange{
		Start: r.URL.Query().Get("start_date"),
		End:   r.URL.Query().Get("end_date"),
	}

	days, err := h.providers.GetAvailability(r.Context(), r.PathValue("id"), dateRange)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

func (h *ProviderHandler) parseSearchQuery(r *http.Request) (services.SearchQuery, error) {
	params := r.URL.Query()

	location := strings.TrimSpace(params.Get("location"))
	if location == "" {
		return services.SearchQuery{}, apperrors.NewValidationError("location is required as \"lat,lng\"")
	}
	origin, err := geo.ParsePoint(location)
	if err != nil {
		return services.SearchQuery{}, apperrors.NewValidationError(err.Error())
	}

	query := services.SearchQuery{
		Origin:    origin,
		Specialty: entities.Specialty(strings.TrimSpace(params.Get("specialty"))),
		RadiusKm:  h.defaults.DefaultRadiusKm,
		Limit:     h.defaults.DefaultLimit,
	}

	if raw := params.Get("radius"); raw != "" {
		if query.RadiusKm, err = strconv.ParseFloat(raw, 64); err != nil {
			return services.SearchQuery{}, apperrors.NewValidationError("radius must be a number")
		}
	}
	if raw := params.Get("limit"); raw != "" {
		if query.Limit, err = strconv.Atoi(raw); err != nil {
			return services.SearchQuery{}, apperrors.NewValidationError("limit must be an integer")
		}
	}
	if raw := params.Get("offset"); raw != "" {
		if query.Offset, err = strconv.Atoi(raw); err != nil {
			return services.SearchQuery{}, apperrors.NewValidationError("offset must be an integer")
		}
	}
	return query, nil
}
