// Package loaders batches repository reads issued while building one response.
package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// batchWait is how long a loader collects keys before it dispatches
const batchWait = 2 * time.Millisecond

// Loaders contains the dataloaders for one request
type Loaders struct {
	ProviderLoader *dataloader.Loader[string, *entities.Provider]
}

// NewLoaders creates a new instance of Loaders. Loaders cache results, so
// build one per request.
func NewLoaders(providerRepo repositories.ProviderRepository) *Loaders {
	return &Loaders{
		ProviderLoader: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Provider] {
				results := make([]*dataloader.Result[*entities.Provider], len(keys))
				found, err := providerRepo.GetByIDs(ctx, keys)

				byID := make(map[string]*entities.Provider, len(found))
				if err == nil {
					for _, p := range found {
						byID[p.ID] = p
					}
				}

				for i, key := range keys {
					if err != nil {
						results[i] = &dataloader.Result[*entities.Provider]{Error: err}
					} else if p, ok := byID[key]; ok {
						results[i] = &dataloader.Result[*entities.Provider]{Data: p}
					} else {
						results[i] = &dataloader.Result[*entities.Provider]{Error: apperrors.ErrProviderNotFound.WithMessage("provider %s not found", key)}
					}
				}
				return results
			},
			dataloader.WithWait[string, *entities.Provider](batchWait),
		),
	}
}

// LoadProviders resolves ids in one batch. The result is aligned with ids;
// entries that failed to load are nil.
func (l *Loaders) LoadProviders(ctx context.Context, ids []string) []*entities.Provider {
	if len(ids) == 0 {
		return nil
	}
	data, errs := l.ProviderLoader.LoadMany(ctx, ids)()
	out := make([]*entities.Provider, len(ids))
	for i := range ids {
		if i < len(errs) && errs[i] != nil {
			continue
		}
		if i < len(data) {
			out[i] = data[i]
		}
	}
	return out
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
