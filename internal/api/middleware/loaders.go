package middleware

import (
	"net/http"

	"github.com/zatekoja/careslot/internal/application/loaders"
	"github.com/zatekoja/careslot/internal/domain/repositories"
)

// Loaders attaches a fresh set of dataloaders to every request so provider
// lookups made while building one response are batched together
func Loaders(providerRepo repositories.ProviderRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), loaders.NewLoaders(providerRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
