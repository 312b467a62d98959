package repositories

import (
	"context"

	"github.com/zatekoja/careslot/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations.
// Appointments are never deleted.
type AppointmentRepository interface {
	// Create assigns a fresh ID, sets status scheduled and the timestamps,
	// stores the record and returns the ID
	Create(ctx context.Context, appointment *entities.Appointment) (string, error)

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// ListByRequester retrieves a requester's appointments in creation order
	ListByRequester(ctx context.Context, requesterID string) ([]*entities.Appointment, error)

	// Update applies mutation to the stored record and returns the result.
	// If mutation fails nothing is written.
	Update(ctx context.Context, id string, mutation entities.AppointmentMutation) (*entities.Appointment, error)
}
