package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/careslot/internal/adapters/cache"
	"github.com/zatekoja/careslot/internal/adapters/locks"
	"github.com/zatekoja/careslot/internal/adapters/memory"
	"github.com/zatekoja/careslot/internal/api/handlers"
	"github.com/zatekoja/careslot/internal/api/middleware"
	"github.com/zatekoja/careslot/internal/api/routes"
	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/entities"
	redisclient "github.com/zatekoja/careslot/internal/infrastructure/clients/redis"
	"github.com/zatekoja/careslot/pkg/config"
)

const (
	providerID = "p1"
	slotDate   = "2025-01-10"
)

func catalog() []*entities.Provider {
	return []*entities.Provider{
		{
			ID:        providerID,
			Name:      "Dr. Smith 1",
			Specialty: entities.SpecialtyCardiologist,
			Location:  entities.Location{Lat: 37.7849, Lng: -122.4094},
			Rating:    4.5,
			Availability: []entities.DayAvailability{{
				Date: slotDate,
				TimeSlots: []entities.TimeSlot{
					{ID: "s1", StartTime: "09:00", EndTime: "10:00"},
					{ID: "s2", StartTime: "10:00", EndTime: "11:00"},
				},
			}},
		},
		{
			ID:        "p2",
			Name:      "Dr. Smith 2",
			Specialty: entities.SpecialtyDentist,
			Location:  entities.Location{Lat: 40.7128, Lng: -74.0060},
			Availability: []entities.DayAvailability{{
				Date:      slotDate,
				TimeSlots: []entities.TimeSlot{{ID: "d1", StartTime: "09:00", EndTime: "09:30"}},
			}},
		},
	}
}

func newServer(t *testing.T, cacheMiddleware *middleware.CacheMiddleware) http.Handler {
	t.Helper()
	providerStore := memory.NewProviderStore()
	availabilityStore := memory.NewAvailabilityStore()
	appointmentStore := memory.NewAppointmentStore()

	require.NoError(t, services.NewCatalogService(providerStore, availabilityStore, nil).Provision(t.Context(), catalog()))

	scheduling := services.NewSchedulingService(providerStore, availabilityStore, appointmentStore, locks.NewLocalLocker(time.Second), nil, nil)
	search := services.NewSearchService(providerStore, nil, 100)
	providerService := services.NewProviderService(providerStore, availabilityStore)
	notifications := services.NewNotificationService(appointmentStore, nil)

	router := routes.NewRouter(
		handlers.NewProviderHandler(providerService, search, config.SearchConfig{DefaultRadiusKm: 10, DefaultLimit: 10, MaxLimit: 100}),
		handlers.NewAppointmentHandler(scheduling),
		handlers.NewNotificationHandler(notifications),
		handlers.NewHealthHandler("test", nil),
		routes.Options{
			ProviderRepo:   providerStore,
			Cache:          cacheMiddleware,
			AllowedOrigins: []string{"https://app.example.com"},
		},
	)
	return router.SetupRoutes()
}

func do(t *testing.T, h http.Handler, method, target, requester string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if requester != "" {
		req.Header.Set(middleware.RequesterHeader, requester)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func availability(t *testing.T, h http.Handler) map[string]bool {
	t.Helper()
	w := do(t, h, http.MethodGet, "/api/providers/"+providerID+"/availability", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var days []entities.DayAvailability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &days))
	free := make(map[string]bool)
	for _, day := range days {
		for _, slot := range day.TimeSlots {
			free[slot.ID] = !slot.Occupied
		}
	}
	return free
}

func TestRouter_AppointmentLifecycle(t *testing.T) {
	h := newServer(t, nil)

	w := do(t, h, http.MethodPost, "/api/appointments", "user-1", map[string]string{
		"providerId": providerID, "date": slotDate, "timeSlotId": "s1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var appt entities.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	assert.Equal(t, entities.AppointmentStatusScheduled, appt.Status)
	assert.Equal(t, "user-1", appt.RequesterID)
	assert.Equal(t, map[string]bool{"s1": false, "s2": true}, availability(t, h))

	// The slot is taken.
	w = do(t, h, http.MethodPost, "/api/appointments", "user-2", map[string]string{
		"doctorId": providerID, "date": slotDate, "timeSlotId": "s1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Another requester cannot see it.
	w = do(t, h, http.MethodGet, "/api/appointments/"+appt.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPut, "/api/appointments/"+appt.ID, "user-1", map[string]string{"timeSlotId": "s2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]bool{"s1": true, "s2": false}, availability(t, h))

	w = do(t, h, http.MethodGet, "/api/appointments/user", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []entities.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "s2", mine[0].TimeSlotID)

	w = do(t, h, http.MethodPost, "/api/notifications/send", "user-1", map[string]string{"appointmentId": appt.ID, "type": "reminder"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, h, http.MethodDelete, "/api/appointments/"+appt.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Appointment cancelled successfully")
	assert.Equal(t, map[string]bool{"s1": true, "s2": true}, availability(t, h))

	w = do(t, h, http.MethodDelete, "/api/appointments/"+appt.ID, "user-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_CORS(t *testing.T) {
	h := newServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/appointments", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.RequesterHeader)

	req = httptest.NewRequest(http.MethodGet, "/api/specialties", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequiresRequester(t *testing.T) {
	h := newServer(t, nil)

	w := do(t, h, http.MethodGet, "/api/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SearchAndDiscovery(t *testing.T) {
	h := newServer(t, nil)

	w := do(t, h, http.MethodGet, "/api/specialties", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	w = do(t, h, http.MethodGet, "/api/providers/search?location=37.7749,-122.4194&radius=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result services.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.TotalCount)
	require.Len(t, result.Providers, 1)
	assert.Equal(t, providerID, result.Providers[0].ID)
	assert.InDelta(t, 1.42, result.Providers[0].Distance, 0.02)

	w = do(t, h, http.MethodGet, "/api/doctors/search?location=37.7749,-122.4194&radius=5000&specialty=Dentist", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.TotalCount)

	w = do(t, h, http.MethodGet, "/api/doctors/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_CachesSearchResponses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	responseCache := cache.NewRedisAdapter(redisclient.NewClientFromRedis(client))

	h := newServer(t, middleware.NewCacheMiddleware(responseCache, nil))
	target := "/api/providers/search?location=37.7749,-122.4194&radius=5"

	w := do(t, h, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	cached := do(t, h, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, cached.Code)
	assert.Equal(t, "HIT", cached.Header().Get("X-Cache"))
	assert.JSONEq(t, w.Body.String(), cached.Body.String())

	// Availability is never served from the response cache.
	w = do(t, h, http.MethodGet, "/api/providers/"+providerID+"/availability", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
}
