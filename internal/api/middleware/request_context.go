package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

const (
	// RequesterHeader carries the caller identity set by the upstream auth proxy
	RequesterHeader = "X-Requester-ID"

	// RequestIDHeader correlates log lines for one request
	RequestIDHeader = "X-Request-ID"
)

type requesterKey struct{}

// RequestID propagates or assigns a request id and puts it on the logger context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}

// Requester resolves the caller identity from RequesterHeader, falling back
// to defaultID when the header is absent. An empty result leaves the
// context untouched; handlers answer 401.
func Requester(defaultID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequesterHeader))
			if id == "" {
				id = defaultID
			}
			if id != "" {
				r = r.WithContext(WithRequesterID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithRequesterID stores the requester id on ctx
func WithRequesterID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requesterKey{}, id)
}

// RequesterIDFromContext returns the resolved requester id, or "" if none
func RequesterIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requesterKey{}).(string)
	return id
}
