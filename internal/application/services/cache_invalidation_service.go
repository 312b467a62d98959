package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

// Cached HTTP responses are keyed as <prefix><path>:<hash>.
const (
	searchCachePattern   = "http:cache:/api/providers/search:*"
	doctorsCachePattern  = "http:cache:/api/doctors/search:*"
	providerCachePattern = "http:cache:/api/providers/%s:*"
)

// CacheInvalidationService drops cached responses that embed provider
// profiles after the catalog changes. Search results otherwise live until
// their TTL expires.
type CacheInvalidationService struct {
	cache providers.CacheProvider
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider) *CacheInvalidationService {
	return &CacheInvalidationService{cache: cache}
}

// InvalidateSearchCaches removes every cached search response
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	for _, pattern := range []string{searchCachePattern, doctorsCachePattern} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
	}
	observability.LoggerFromContext(ctx).Debug().Msg("invalidated search caches")
	return nil
}

// InvalidateProvider removes cached responses for one provider
func (s *CacheInvalidationService) InvalidateProvider(ctx context.Context, providerID string) error {
	pattern := fmt.Sprintf(providerCachePattern, providerID)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate provider cache: %w", err)
	}
	return nil
}

// InvalidateCatalog is run after a provision or reindex
func (s *CacheInvalidationService) InvalidateCatalog(ctx context.Context, providerIDs []string) error {
	for _, id := range providerIDs {
		if err := s.InvalidateProvider(ctx, id); err != nil {
			return err
		}
	}
	return s.InvalidateSearchCaches(ctx)
}
