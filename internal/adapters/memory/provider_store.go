// Package memory holds the default in-process stores. All state is lost on
// restart; use the database adapters for durability.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// ProviderStore implements repositories.ProviderRepository in memory
type ProviderStore struct {
	mu        sync.RWMutex
	providers map[string]*entities.Provider
}

// NewProviderStore creates an empty provider store
func NewProviderStore() *ProviderStore {
	return &ProviderStore{providers: make(map[string]*entities.Provider)}
}

var _ repositories.ProviderRepository = (*ProviderStore)(nil)

// GetByID retrieves a provider by ID
func (s *ProviderStore) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	provider, ok := s.providers[id]
	if !ok {
		return nil, apperrors.ErrProviderNotFound.WithMessage("provider %s not found", id)
	}
	return provider.Profile(), nil
}

// GetByIDs retrieves multiple providers in the order of ids, skipping unknown ones
func (s *ProviderStore) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Provider, 0, len(ids))
	for _, id := range ids {
		if provider, ok := s.providers[id]; ok {
			out = append(out, provider.Profile())
		}
	}
	return out, nil
}

// List retrieves providers ordered by ID
func (s *ProviderStore) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed map[string]struct{}
	if filter.IDs != nil {
		allowed = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			allowed[id] = struct{}{}
		}
	}

	out := make([]*entities.Provider, 0, len(s.providers))
	for id, provider := range s.providers {
		if filter.Specialty != "" && provider.Specialty != filter.Specialty {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[id]; !ok {
				continue
			}
		}
		out = append(out, provider.Profile())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert creates or replaces a provider profile
func (s *ProviderStore) Upsert(ctx context.Context, provider *entities.Provider) error {
	profile := provider.Profile()
	if err := profile.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.providers[profile.ID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	s.providers[profile.ID] = profile
	return nil
}
