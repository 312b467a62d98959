package repositories

import (
	"context"

	"github.com/zatekoja/careslot/internal/domain/entities"
)

// ProviderRepository defines the interface for provider profile operations.
// Returned providers never carry a calendar; calendars live in the
// AvailabilityRepository.
type ProviderRepository interface {
	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// GetByIDs retrieves multiple providers; unknown ids are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error)

	// List retrieves providers ordered by ID
	List(ctx context.Context, filter ProviderFilter) ([]*entities.Provider, error)

	// Upsert creates or replaces a provider profile
	Upsert(ctx context.Context, provider *entities.Provider) error
}

// ProviderFilter defines filters for listing providers
type ProviderFilter struct {
	Specialty entities.Specialty
	// IDs restricts the listing to the given providers when non-nil
	IDs []string
}
