package services

import (
	"context"
	"strings"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// ProviderService serves provider profiles and calendars
type ProviderService struct {
	providerRepo     repositories.ProviderRepository
	availabilityRepo repositories.AvailabilityRepository
}

// NewProviderService creates a new provider service
func NewProviderService(providerRepo repositories.ProviderRepository, availabilityRepo repositories.AvailabilityRepository) *ProviderService {
	return &ProviderService{
		providerRepo:     providerRepo,
		availabilityRepo: availabilityRepo,
	}
}

// ListSpecialties returns the fixed specialty list in display order
func (s *ProviderService) ListSpecialties() []entities.Specialty {
	return entities.Specialties()
}

// GetProvider returns a provider with its full calendar
func (s *ProviderService) GetProvider(ctx context.Context, id string) (*entities.Provider, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}

	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	days, err := s.availabilityRepo.ListAvailability(ctx, id, entities.DateRange{})
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if days == nil {
		days = []entities.DayAvailability{}
	}
	provider.Availability = days
	return provider, nil
}

// GetAvailability returns the provider's days within dateRange. Each slot's
// occupancy is read atomically with respect to booking writes.
func (s *ProviderService) GetAvailability(ctx context.Context, id string, dateRange entities.DateRange) ([]entities.DayAvailability, error) {
	if err := dateRange.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if _, err := s.providerRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	days, err := s.availabilityRepo.ListAvailability(ctx, id, dateRange)
	if err != nil {
		// A provisioned provider without a calendar has no availability.
		if apperrors.IsNotFound(err) {
			return []entities.DayAvailability{}, nil
		}
		return nil, err
	}
	return days, nil
}
