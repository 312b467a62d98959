package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/careslot/internal/adapters/memory"
	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
)

// Mocks

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.AppointmentEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AppointmentEvent, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(<-chan *entities.AppointmentEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

// Events returns the published events on channel, in order
func (m *MockEventBus) Events(channel string) []*entities.AppointmentEvent {
	var out []*entities.AppointmentEvent
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.String(1) == channel {
			out = append(out, call.Arguments.Get(2).(*entities.AppointmentEvent))
		}
	}
	return out
}

type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) Candidates(ctx context.Context, query providers.ProviderSearchQuery) ([]string, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSearchIndex) Index(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockSearchIndex) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// faultyAppointmentStore fails Create or Update on demand
type faultyAppointmentStore struct {
	*memory.AppointmentStore
	createErr error
	updateErr error
}

func (s *faultyAppointmentStore) Create(ctx context.Context, appt *entities.Appointment) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.AppointmentStore.Create(ctx, appt)
}

func (s *faultyAppointmentStore) Update(ctx context.Context, id string, mutation entities.AppointmentMutation) (*entities.Appointment, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.AppointmentStore.Update(ctx, id, mutation)
}

// Fixtures

const (
	testProviderID = "p1"
	testDate       = "2025-01-10"
	testNextDate   = "2025-01-11"
)

func testProviders() []*entities.Provider {
	return []*entities.Provider{
		{
			ID:        testProviderID,
			Name:      "Dr. Smith 1",
			Specialty: entities.SpecialtyCardiologist,
			Location:  entities.Location{Lat: 37.7849, Lng: -122.4094},
			Availability: []entities.DayAvailability{
				{
					Date: testDate,
					TimeSlots: []entities.TimeSlot{
						{ID: "s1", StartTime: "09:00", EndTime: "10:00"},
						{ID: "s2", StartTime: "10:00", EndTime: "11:00"},
						{ID: "s3", StartTime: "11:00", EndTime: "12:00"},
					},
				},
				{
					Date:      testNextDate,
					TimeSlots: []entities.TimeSlot{{ID: "s4", StartTime: "14:00", EndTime: "15:00"}},
				},
			},
		},
		{
			ID:        "p2",
			Name:      "Dr. Smith 2",
			Specialty: entities.SpecialtyDentist,
			Location:  entities.Location{Lat: 37.7949, Lng: -122.3994},
			Availability: []entities.DayAvailability{
				{Date: testDate, TimeSlots: []entities.TimeSlot{{ID: "d1", StartTime: "09:00", EndTime: "09:30"}}},
			},
		},
	}
}

type stores struct {
	providers    *memory.ProviderStore
	availability *memory.AvailabilityStore
	appointments *faultyAppointmentStore
}

func newStores(t *testing.T) *stores {
	t.Helper()
	s := &stores{
		providers:    memory.NewProviderStore(),
		availability: memory.NewAvailabilityStore(),
		appointments: &faultyAppointmentStore{AppointmentStore: memory.NewAppointmentStore()},
	}
	catalog := services.NewCatalogService(s.providers, s.availability, nil)
	require.NoError(t, catalog.Provision(context.Background(), testProviders()))
	return s
}

func (s *stores) slot(t *testing.T, providerID, date, slotID string) *entities.TimeSlot {
	t.Helper()
	slot, err := s.availability.GetSlot(context.Background(), entities.SlotKey{ProviderID: providerID, Date: date, SlotID: slotID})
	require.NoError(t, err)
	return slot
}

var _ repositories.AppointmentRepository = (*faultyAppointmentStore)(nil)
