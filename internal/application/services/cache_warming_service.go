package services

import (
	"context"
	"time"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

// CacheWarmingService keeps the per-specialty provider listings hot. It
// reads through the repository so a caching decorator fills itself.
type CacheWarmingService struct {
	providerRepo repositories.ProviderRepository
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(providerRepo repositories.ProviderRepository) *CacheWarmingService {
	return &CacheWarmingService{providerRepo: providerRepo}
}

// WarmCache loads the full listing and each specialty listing once.
// It returns the number of listings that loaded.
func (s *CacheWarmingService) WarmCache(ctx context.Context) int {
	logger := observability.LoggerFromContext(ctx)

	warmed := 0
	if _, err := s.providerRepo.List(ctx, repositories.ProviderFilter{}); err != nil {
		logger.Warn().Err(err).Msg("failed to warm provider listing")
	} else {
		warmed++
	}

	for _, specialty := range entities.Specialties() {
		if _, err := s.providerRepo.List(ctx, repositories.ProviderFilter{Specialty: specialty}); err != nil {
			logger.Warn().Err(err).Str("specialty", string(specialty)).Msg("failed to warm specialty listing")
			continue
		}
		warmed++
	}

	logger.Debug().Int("listings", warmed).Msg("cache warming completed")
	return warmed
}

// StartPeriodicWarming warms once, then again every interval until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	s.WarmCache(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				observability.LoggerFromContext(ctx).Info().Msg("stopping cache warming")
				return
			case <-ticker.C:
				s.WarmCache(ctx)
			}
		}
	}()
	observability.LoggerFromContext(ctx).Info().Dur("interval", interval).Msg("started periodic cache warming")
}
