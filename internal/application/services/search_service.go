package services

import (
	"context"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
	"github.com/zatekoja/careslot/pkg/geo"
)

// SearchQuery is a radius search around an origin
type SearchQuery struct {
	Origin    geo.Point
	Specialty entities.Specialty
	RadiusKm  float64
	Limit     int
	Offset    int
}

// ProviderMatch is a provider with its distance from the search origin
type ProviderMatch struct {
	*entities.Provider
	// Distance is rounded to two decimals; ordering uses the exact value.
	Distance float64 `json:"distance"`
}

// SearchResult is one page of matches plus the size of the whole filtered set
type SearchResult struct {
	Providers  []ProviderMatch `json:"providers"`
	TotalCount int             `json:"total"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// SearchService filters providers by specialty and great-circle distance.
// It only reads provider profiles and never takes slot locks.
type SearchService struct {
	providerRepo repositories.ProviderRepository
	index        providers.ProviderSearchIndex
	maxLimit     int
}

// NewSearchService creates a new search service. index may be nil, in which
// case every provider of the specialty is scanned. Limits above maxLimit are
// clamped.
func NewSearchService(providerRepo repositories.ProviderRepository, index providers.ProviderSearchIndex, maxLimit int) *SearchService {
	return &SearchService{
		providerRepo: providerRepo,
		index:        index,
		maxLimit:     maxLimit,
	}
}

type scoredProvider struct {
	provider *entities.Provider
	distance float64
}

// Search returns providers within RadiusKm of Origin (inclusive), nearest
// first with ties broken by provider ID, sliced to [Offset, Offset+Limit).
func (s *SearchService) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	if err := s.validate(query); err != nil {
		return nil, err
	}
	if s.maxLimit > 0 && query.Limit > s.maxLimit {
		query.Limit = s.maxLimit
	}
	observability.SetSpanAttributes(span,
		attribute.Float64("search.radius_km", query.RadiusKm),
		attribute.String("search.specialty", string(query.Specialty)),
	)

	candidates, err := s.candidates(ctx, query)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	matches := make([]scoredProvider, 0, len(candidates))
	for _, p := range candidates {
		if query.Specialty != "" && p.Specialty != query.Specialty {
			continue
		}
		d := geo.DistanceBetween(query.Origin, p.Location.Point())
		if d <= query.RadiusKm {
			matches = append(matches, scoredProvider{provider: p, distance: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].provider.ID < matches[j].provider.ID
	})

	result := &SearchResult{
		Providers:  []ProviderMatch{},
		TotalCount: len(matches),
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	if query.Offset < len(matches) {
		// Compared without adding so an unclamped limit cannot overflow.
		end := len(matches)
		if query.Limit < end-query.Offset {
			end = query.Offset + query.Limit
		}
		for _, m := range matches[query.Offset:end] {
			result.Providers = append(result.Providers, ProviderMatch{
				Provider: m.provider,
				Distance: geo.Round2(m.distance),
			})
		}
	}

	observability.SetSpanAttributes(span, attribute.Int("search.total", result.TotalCount))
	return result, nil
}

func (s *SearchService) validate(query SearchQuery) error {
	if !query.Origin.Valid() {
		return apperrors.NewValidationError("origin coordinates are out of range")
	}
	if math.IsNaN(query.RadiusKm) || math.IsInf(query.RadiusKm, 0) || query.RadiusKm < 0 {
		return apperrors.NewValidationError("radius must be a non-negative number")
	}
	if query.Limit < 0 {
		return apperrors.NewValidationError("limit must not be negative")
	}
	if query.Offset < 0 {
		return apperrors.NewValidationError("offset must not be negative")
	}
	return nil
}

// candidates narrows the scan through the search index when one is
// configured, falling back to the repository if the index is unavailable.
func (s *SearchService) candidates(ctx context.Context, query SearchQuery) ([]*entities.Provider, error) {
	filter := repositories.ProviderFilter{Specialty: query.Specialty}

	if s.index != nil {
		ids, err := s.index.Candidates(ctx, providers.ProviderSearchQuery{
			Origin:    entities.Location{Lat: query.Origin.Lat, Lng: query.Origin.Lng},
			Specialty: query.Specialty,
			RadiusKm:  query.RadiusKm,
		})
		if err == nil {
			if len(ids) == 0 {
				return nil, nil
			}
			filter.IDs = ids
		} else {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("search index unavailable, scanning provider store")
		}
	}

	return s.providerRepo.List(ctx, filter)
}
