package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	tsclient "github.com/zatekoja/careslot/internal/infrastructure/clients/typesense"
)

const (
	candidatesPerPage = 250
	maxCandidatePages = 40

	// radiusSlackKm widens the index radius so geopoint rounding never drops
	// a provider the exact haversine check would keep.
	radiusSlackKm = 0.5
)

// TypesenseAdapter implements provider candidate search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements ProviderSearchIndex
var _ providers.ProviderSearchIndex = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index indexes a provider profile
func (a *TypesenseAdapter) Index(ctx context.Context, provider *entities.Provider) error {
	_, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Upsert(ctx, providerDocument(provider))
	if err != nil {
		return fmt.Errorf("failed to index provider %s: %w", provider.ID, err)
	}
	return nil
}

// Candidates returns ids of providers inside a slightly widened radius
func (a *TypesenseAdapter) Candidates(ctx context.Context, query providers.ProviderSearchQuery) ([]string, error) {
	filter := candidateFilter(query)
	ids := []string{}

	for page := 1; page <= maxCandidatePages; page++ {
		params := &api.SearchCollectionParams{
			Q:        pointer.String("*"),
			QueryBy:  pointer.String("name"),
			FilterBy: pointer.String(filter),
			Page:     pointer.Int(page),
			PerPage:  pointer.Int(candidatesPerPage),
		}

		result, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search providers: %w", err)
		}
		if result.Hits == nil {
			break
		}

		hits := *result.Hits
		for _, hit := range hits {
			if hit.Document == nil {
				continue
			}
			if id, ok := (*hit.Document)["id"].(string); ok {
				ids = append(ids, id)
			}
		}

		if len(hits) < candidatesPerPage {
			break
		}
		if result.Found != nil && len(ids) >= *result.Found {
			break
		}
	}

	return ids, nil
}

// Ping verifies the index is reachable
func (a *TypesenseAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func providerDocument(provider *entities.Provider) map[string]interface{} {
	return map[string]interface{}{
		"id":         provider.ID,
		"name":       provider.Name,
		"specialty":  string(provider.Specialty),
		"location":   []float64{provider.Location.Lat, provider.Location.Lng},
		"rating":     provider.Rating,
		"created_at": provider.CreatedAt.Unix(),
	}
}

func candidateFilter(query providers.ProviderSearchQuery) string {
	parts := []string{
		fmt.Sprintf("location:(%f, %f, %.3f km)", query.Origin.Lat, query.Origin.Lng, query.RadiusKm+radiusSlackKm),
	}
	if query.Specialty != "" {
		// Backticks let the value contain spaces and commas.
		value := strings.ReplaceAll(string(query.Specialty), "`", "")
		parts = append(parts, fmt.Sprintf("specialty:=`%s`", value))
	}
	return strings.Join(parts, " && ")
}
