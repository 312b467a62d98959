package providers

import (
	"context"

	"github.com/zatekoja/careslot/internal/domain/entities"
)

// ProviderSearchQuery narrows providers by specialty and a radius around an origin
type ProviderSearchQuery struct {
	Origin    entities.Location
	Specialty entities.Specialty
	RadiusKm  float64
}

// ProviderSearchIndex is an optional external index that returns candidate
// provider ids. Callers must still apply exact distance filtering.
type ProviderSearchIndex interface {
	// Candidates returns ids of providers that may match the query
	Candidates(ctx context.Context, query ProviderSearchQuery) ([]string, error)

	// Index adds or replaces a provider document
	Index(ctx context.Context, provider *entities.Provider) error

	// Ping verifies the index is reachable
	Ping(ctx context.Context) error
}
