package repositories

import (
	"context"

	"github.com/zatekoja/careslot/internal/domain/entities"
)

// AvailabilityRepository owns each provider's calendar and slot occupancy.
// Implementations serialize reads and writes per provider calendar so a
// listing never observes a half-applied flip.
type AvailabilityRepository interface {
	// GetSlot resolves one slot; fails ErrSlotNotFound when the provider,
	// date or slot id is unknown
	GetSlot(ctx context.Context, key entities.SlotKey) (*entities.TimeSlot, error)

	// SetOccupied sets the occupancy flag. Setting the current value succeeds.
	SetOccupied(ctx context.Context, key entities.SlotKey, occupied bool) error

	// SetOccupiedBatch applies all changes or none; readers never observe a
	// subset. Any unknown slot fails the whole batch with ErrSlotNotFound.
	SetOccupiedBatch(ctx context.Context, changes []OccupancyChange) error

	// ListAvailability returns the provider's days inside the range, ordered by date
	ListAvailability(ctx context.Context, providerID string, dateRange entities.DateRange) ([]entities.DayAvailability, error)

	// ReplaceCalendar provisions a provider's calendar, discarding the old one
	ReplaceCalendar(ctx context.Context, providerID string, days []entities.DayAvailability) error
}

// OccupancyChange sets one slot's occupancy flag
type OccupancyChange struct {
	Key      entities.SlotKey
	Occupied bool
}
