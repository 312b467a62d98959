package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

const (
	seedProviderCount = 10
	seedFirstHour     = 9
	seedLastHour      = 17
)

// SeedCatalog builds the demo catalog: ten providers around San Francisco,
// each with hourly slots from 09:00 to 17:00 for days consecutive dates
// starting at now.
func SeedCatalog(now time.Time, days int) []*entities.Provider {
	specialties := entities.Specialties()
	out := make([]*entities.Provider, 0, seedProviderCount)

	for i := 1; i <= seedProviderCount; i++ {
		calendar := make([]entities.DayAvailability, 0, days)
		for d := 0; d < days; d++ {
			date := now.AddDate(0, 0, d).Format(entities.DateLayout)
			slots := make([]entities.TimeSlot, 0, seedLastHour-seedFirstHour)
			for hour := seedFirstHour; hour < seedLastHour; hour++ {
				slots = append(slots, entities.TimeSlot{
					ID:        uuid.New().String(),
					StartTime: fmt.Sprintf("%02d:00", hour),
					EndTime:   fmt.Sprintf("%02d:00", hour+1),
				})
			}
			calendar = append(calendar, entities.DayAvailability{Date: date, TimeSlots: slots})
		}

		out = append(out, &entities.Provider{
			ID:        uuid.New().String(),
			Name:      fmt.Sprintf("Dr. Smith %d", i),
			Specialty: specialties[i%len(specialties)],
			Address:   fmt.Sprintf("%d Medical Street, Healthcare City", i),
			Phone:     fmt.Sprintf("+1-555-%03d-%04d", i, i*1111),
			Email:     fmt.Sprintf("doctor%d@example.com", i),
			Rating:    4.0 + float64(i%10)/10,
			Location: entities.Location{
				Lat: 37.7749 + float64(i)*0.01,
				Lng: -122.4194 + float64(i)*0.01,
			},
			PlaceID:      fmt.Sprintf("place_id_%d", i),
			Availability: calendar,
		})
	}
	return out
}

// CatalogService provisions providers and their calendars
type CatalogService struct {
	providerRepo     repositories.ProviderRepository
	availabilityRepo repositories.AvailabilityRepository
	index            providers.ProviderSearchIndex
	invalidator      *CacheInvalidationService
}

// NewCatalogService creates a new catalog service. index may be nil.
func NewCatalogService(
	providerRepo repositories.ProviderRepository,
	availabilityRepo repositories.AvailabilityRepository,
	index providers.ProviderSearchIndex,
) *CatalogService {
	return &CatalogService{
		providerRepo:     providerRepo,
		availabilityRepo: availabilityRepo,
		index:            index,
	}
}

// WithCacheInvalidation drops cached provider responses after each Provision
func (s *CatalogService) WithCacheInvalidation(invalidator *CacheInvalidationService) *CatalogService {
	s.invalidator = invalidator
	return s
}

// Provision validates and stores each provider with its calendar, then
// indexes it. Index failures are logged; the stores stay authoritative.
func (s *CatalogService) Provision(ctx context.Context, list []*entities.Provider) error {
	logger := observability.LoggerFromContext(ctx)

	for _, p := range list {
		provider := p.Clone()
		if err := provider.Validate(); err != nil {
			return fmt.Errorf("invalid provider: %w", err)
		}
		if err := s.providerRepo.Upsert(ctx, provider); err != nil {
			return fmt.Errorf("failed to store provider %s: %w", provider.ID, err)
		}
		if err := s.availabilityRepo.ReplaceCalendar(ctx, provider.ID, provider.Availability); err != nil {
			return fmt.Errorf("failed to store calendar for provider %s: %w", provider.ID, err)
		}
		if s.index != nil {
			if err := s.index.Index(ctx, provider.Profile()); err != nil {
				logger.Warn().Err(err).Str("provider_id", provider.ID).Msg("failed to index provider")
			}
		}
	}

	if s.invalidator != nil {
		ids := make([]string, len(list))
		for i, p := range list {
			ids[i] = p.ID
		}
		if err := s.invalidator.InvalidateCatalog(ctx, ids); err != nil {
			logger.Warn().Err(err).Msg("failed to invalidate cached provider responses")
		}
	}

	logger.Info().Int("providers", len(list)).Msg("catalog provisioned")
	return nil
}

// Reindex pushes every stored provider to the search index
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	list, err := s.providerRepo.List(ctx, repositories.ProviderFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list providers: %w", err)
	}

	indexed := 0
	for _, p := range list {
		if err := s.index.Index(ctx, p); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", p.ID).Msg("failed to index provider")
			continue
		}
		indexed++
	}
	return indexed, nil
}
