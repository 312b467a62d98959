package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// AppointmentStore implements repositories.AppointmentRepository in memory.
// Records are copied on the way in and out; callers never share a pointer
// with the store.
type AppointmentStore struct {
	mu          sync.RWMutex
	records     map[string]*entities.Appointment
	byRequester map[string][]string
	now         func() time.Time
}

// NewAppointmentStore creates an empty appointment store
func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{
		records:     make(map[string]*entities.Appointment),
		byRequester: make(map[string][]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ repositories.AppointmentRepository = (*AppointmentStore)(nil)

// Create stores a new scheduled appointment under a fresh ID
func (s *AppointmentStore) Create(ctx context.Context, appointment *entities.Appointment) (string, error) {
	if appointment.ProviderID == "" || appointment.RequesterID == "" {
		return "", apperrors.NewValidationError("appointment requires provider and requester")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	now := s.now()
	appointment.ID = id
	appointment.Status = entities.AppointmentStatusScheduled
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	record := appointment.Clone()
	record.Provider = nil
	s.records[id] = record
	s.byRequester[record.RequesterID] = append(s.byRequester[record.RequesterID], id)
	return id, nil
}

// GetByID retrieves an appointment by ID
func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, appointmentNotFound(id)
	}
	return record.Clone(), nil
}

// ListByRequester retrieves a requester's appointments in creation order
func (s *AppointmentStore) ListByRequester(ctx context.Context, requesterID string) ([]*entities.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRequester[requesterID]
	out := make([]*entities.Appointment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// Update applies mutation to a copy and stores it only when mutation succeeds
func (s *AppointmentStore) Update(ctx context.Context, id string, mutation entities.AppointmentMutation) (*entities.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, appointmentNotFound(id)
	}

	updated := record.Clone()
	if err := mutation(updated); err != nil {
		return nil, err
	}
	// Identity and ownership are immutable.
	updated.ID = record.ID
	updated.RequesterID = record.RequesterID
	updated.CreatedAt = record.CreatedAt
	updated.Provider = nil
	updated.UpdatedAt = s.now()

	s.records[id] = updated
	return updated.Clone(), nil
}

func appointmentNotFound(id string) error {
	return apperrors.ErrAppointmentNotFound.WithMessage("appointment %s not found", id)
}
