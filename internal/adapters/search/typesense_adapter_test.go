package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	tsclient "github.com/zatekoja/careslot/internal/infrastructure/clients/typesense"
)

func TestCandidateFilter(t *testing.T) {
	query := providers.ProviderSearchQuery{
		Origin:   entities.Location{Lat: 37.7749, Lng: -122.4194},
		RadiusKm: 10,
	}
	assert.Equal(t, "location:(37.774900, -122.419400, 10.500 km)", candidateFilter(query))

	query.Specialty = entities.SpecialtyENTSpecialist
	assert.Equal(t,
		"location:(37.774900, -122.419400, 10.500 km) && specialty:=`ENT Specialist`",
		candidateFilter(query))
}

func TestProviderDocument(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := providerDocument(&entities.Provider{
		ID:        "p1",
		Name:      "Dr. Smith 1",
		Specialty: entities.SpecialtyCardiologist,
		Rating:    4.5,
		Location:  entities.Location{Lat: 37.78, Lng: -122.41},
		CreatedAt: created,
	})

	assert.Equal(t, "p1", doc["id"])
	assert.Equal(t, "Cardiologist", doc["specialty"])
	assert.Equal(t, []float64{37.78, -122.41}, doc["location"])
	assert.Equal(t, created.Unix(), doc["created_at"])
}

// fakeTypesense serves total hits split across pages
func fakeTypesense(t *testing.T, total int) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu      sync.Mutex
		filters []string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/collections/providers/documents/search", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		filters = append(filters, r.URL.Query().Get("filter_by"))
		mu.Unlock()
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

		hits := []map[string]interface{}{}
		for i := (page - 1) * perPage; i < page*perPage && i < total; i++ {
			hits = append(hits, map[string]interface{}{
				"document": map[string]interface{}{"id": fmt.Sprintf("p%d", i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"found":          total,
			"out_of":         total,
			"page":           page,
			"search_time_ms": 1,
			"hits":           hits,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), filters...)
	}
}

func newTestAdapter(server *httptest.Server) *TypesenseAdapter {
	client := typesense.NewClient(
		typesense.WithServer(server.URL),
		typesense.WithAPIKey("test"),
	)
	return NewTypesenseAdapter(tsclient.NewClientFromTypesense(client))
}

func TestTypesenseAdapter_Candidates(t *testing.T) {
	server, filters := fakeTypesense(t, 3)
	adapter := newTestAdapter(server)

	ids, err := adapter.Candidates(context.Background(), providers.ProviderSearchQuery{
		Origin:    entities.Location{Lat: 1, Lng: 2},
		Specialty: entities.SpecialtyDentist,
		RadiusKm:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p1", "p2"}, ids)
	seen := filters()
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0], "specialty:=`Dentist`")
}

func TestTypesenseAdapter_CandidatesPaginates(t *testing.T) {
	server, filters := fakeTypesense(t, candidatesPerPage+10)
	adapter := newTestAdapter(server)

	ids, err := adapter.Candidates(context.Background(), providers.ProviderSearchQuery{RadiusKm: 5})
	require.NoError(t, err)
	assert.Len(t, ids, candidatesPerPage+10)
	assert.Len(t, filters(), 2)
}

func TestTypesenseAdapter_Ping(t *testing.T) {
	server, _ := fakeTypesense(t, 0)
	adapter := newTestAdapter(server)

	assert.NoError(t, adapter.Ping(context.Background()))
}
