package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

// Cache TTLs (in seconds)
const (
	providerByIDTTL  = 300 // 5 minutes for a single profile
	providersListTTL = 180 // 3 minutes for specialty listings
)

const providerCacheName = "provider"

// CachedProviderAdapter wraps a ProviderRepository with a read-through cache
// of provider profiles. Calendars are never cached; occupancy changes on
// every booking.
type CachedProviderAdapter struct {
	adapter repositories.ProviderRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedProviderAdapter creates a new cached provider adapter. metrics may be nil.
func NewCachedProviderAdapter(adapter repositories.ProviderRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.ProviderRepository {
	return &CachedProviderAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

func providerCacheKey(id string) string {
	return fmt.Sprintf("provider:%s", id)
}

func providersListCacheKey(specialty entities.Specialty) string {
	return fmt.Sprintf("providers:list:%s", specialty)
}

// GetByID retrieves a provider by ID with caching
func (a *CachedProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	cacheKey := providerCacheKey(id)

	var provider entities.Provider
	if a.load(ctx, cacheKey, &provider) {
		return &provider, nil
	}

	fetched, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, cacheKey, fetched, providerByIDTTL)
	return fetched, nil
}

// GetByIDs serves cached profiles and fetches the rest in one call
func (a *CachedProviderAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	byID := make(map[string]*entities.Provider, len(ids))
	var missing []string

	for _, id := range ids {
		if _, seen := byID[id]; seen {
			continue
		}
		var provider entities.Provider
		if a.load(ctx, providerCacheKey(id), &provider) {
			byID[id] = &provider
			continue
		}
		byID[id] = nil
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := a.adapter.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, provider := range fetched {
			byID[provider.ID] = provider
			a.store(ctx, providerCacheKey(provider.ID), provider, providerByIDTTL)
		}
	}

	out := make([]*entities.Provider, 0, len(ids))
	for _, id := range ids {
		if provider := byID[id]; provider != nil {
			out = append(out, provider.Profile())
		}
	}
	return out, nil
}

// List caches whole-specialty listings; id-restricted listings bypass the cache
func (a *CachedProviderAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	if filter.IDs != nil {
		return a.adapter.List(ctx, filter)
	}

	cacheKey := providersListCacheKey(filter.Specialty)
	var cached []*entities.Provider
	if a.load(ctx, cacheKey, &cached) {
		return cached, nil
	}

	list, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	a.store(ctx, cacheKey, list, providersListTTL)
	return list, nil
}

// Upsert writes through and invalidates the profile and every listing
func (a *CachedProviderAdapter) Upsert(ctx context.Context, provider *entities.Provider) error {
	if err := a.adapter.Upsert(ctx, provider); err != nil {
		return err
	}

	keys := []string{providerCacheKey(provider.ID), providersListCacheKey("")}
	for _, specialty := range entities.Specialties() {
		keys = append(keys, providersListCacheKey(specialty))
	}
	if err := a.cache.Delete(ctx, keys...); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", provider.ID).Msg("Failed to invalidate provider cache")
	}
	return nil
}

func (a *CachedProviderAdapter) load(ctx context.Context, key string, dest interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Provider cache read failed")
		}
		observability.RecordCacheMiss(ctx, a.metrics, providerCacheName)
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached provider")
		observability.RecordCacheMiss(ctx, a.metrics, providerCacheName)
		return false
	}
	observability.RecordCacheHit(ctx, a.metrics, providerCacheName)
	return true
}

func (a *CachedProviderAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to cache provider")
	}
}
