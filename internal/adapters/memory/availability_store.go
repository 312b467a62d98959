package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// calendar is one provider's days plus lookup indexes. mu guards days and
// every slot's occupancy; it is held only for in-memory field access.
type calendar struct {
	mu    sync.Mutex
	days  []entities.DayAvailability
	dates map[string]int
	slots map[string]map[string]int
}

func newCalendar(days []entities.DayAvailability) *calendar {
	c := &calendar{
		days:  days,
		dates: make(map[string]int, len(days)),
		slots: make(map[string]map[string]int, len(days)),
	}
	for i, day := range days {
		c.dates[day.Date] = i
		idx := make(map[string]int, len(day.TimeSlots))
		for j, slot := range day.TimeSlots {
			idx[slot.ID] = j
		}
		c.slots[day.Date] = idx
	}
	return c
}

func (c *calendar) slot(date, slotID string) *entities.TimeSlot {
	dayIdx, ok := c.dates[date]
	if !ok {
		return nil
	}
	slotIdx, ok := c.slots[date][slotID]
	if !ok {
		return nil
	}
	return &c.days[dayIdx].TimeSlots[slotIdx]
}

// AvailabilityStore implements repositories.AvailabilityRepository in memory.
// Each provider calendar has its own mutex, so flips on different providers
// never contend.
type AvailabilityStore struct {
	mu        sync.RWMutex
	calendars map[string]*calendar
}

// NewAvailabilityStore creates an empty availability store
func NewAvailabilityStore() *AvailabilityStore {
	return &AvailabilityStore{calendars: make(map[string]*calendar)}
}

var _ repositories.AvailabilityRepository = (*AvailabilityStore)(nil)

func (s *AvailabilityStore) calendar(providerID string) *calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendars[providerID]
}

// GetSlot resolves one slot by key
func (s *AvailabilityStore) GetSlot(ctx context.Context, key entities.SlotKey) (*entities.TimeSlot, error) {
	cal := s.calendar(key.ProviderID)
	if cal == nil {
		return nil, slotNotFound(key)
	}

	cal.mu.Lock()
	defer cal.mu.Unlock()

	slot := cal.slot(key.Date, key.SlotID)
	if slot == nil {
		return nil, slotNotFound(key)
	}
	out := *slot
	return &out, nil
}

// SetOccupied sets the occupancy flag; setting the current value is a no-op
func (s *AvailabilityStore) SetOccupied(ctx context.Context, key entities.SlotKey, occupied bool) error {
	cal := s.calendar(key.ProviderID)
	if cal == nil {
		return slotNotFound(key)
	}

	cal.mu.Lock()
	defer cal.mu.Unlock()

	slot := cal.slot(key.Date, key.SlotID)
	if slot == nil {
		return slotNotFound(key)
	}
	slot.Occupied = occupied
	return nil
}

// SetOccupiedBatch validates every key first, then applies all changes while
// holding each affected calendar's mutex
func (s *AvailabilityStore) SetOccupiedBatch(ctx context.Context, changes []repositories.OccupancyChange) error {
	if len(changes) == 0 {
		return nil
	}

	providerIDs := make([]string, 0, len(changes))
	seen := make(map[string]struct{}, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.Key.ProviderID]; !ok {
			seen[c.Key.ProviderID] = struct{}{}
			providerIDs = append(providerIDs, c.Key.ProviderID)
		}
	}
	sort.Strings(providerIDs)

	cals := make(map[string]*calendar, len(providerIDs))
	for _, id := range providerIDs {
		cal := s.calendar(id)
		if cal == nil {
			for _, c := range changes {
				if c.Key.ProviderID == id {
					return slotNotFound(c.Key)
				}
			}
		}
		cals[id] = cal
	}

	for _, id := range providerIDs {
		cals[id].mu.Lock()
		defer cals[id].mu.Unlock()
	}

	slots := make([]*entities.TimeSlot, len(changes))
	for i, c := range changes {
		slot := cals[c.Key.ProviderID].slot(c.Key.Date, c.Key.SlotID)
		if slot == nil {
			return slotNotFound(c.Key)
		}
		slots[i] = slot
	}
	for i, c := range changes {
		slots[i].Occupied = c.Occupied
	}
	return nil
}

// ListAvailability returns a copy of the provider's days inside dateRange
func (s *AvailabilityStore) ListAvailability(ctx context.Context, providerID string, dateRange entities.DateRange) ([]entities.DayAvailability, error) {
	cal := s.calendar(providerID)
	if cal == nil {
		return nil, apperrors.ErrProviderNotFound.WithMessage("provider %s not found", providerID)
	}

	cal.mu.Lock()
	defer cal.mu.Unlock()

	out := make([]entities.DayAvailability, 0, len(cal.days))
	for _, day := range cal.days {
		if !dateRange.Contains(day.Date) {
			continue
		}
		slots := make([]entities.TimeSlot, len(day.TimeSlots))
		copy(slots, day.TimeSlots)
		out = append(out, entities.DayAvailability{Date: day.Date, TimeSlots: slots})
	}
	return out, nil
}

// ReplaceCalendar provisions a provider's calendar from a validated copy of days
func (s *AvailabilityStore) ReplaceCalendar(ctx context.Context, providerID string, days []entities.DayAvailability) error {
	normalized, err := entities.NormalizeCalendar(days)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[providerID] = newCalendar(normalized)
	return nil
}

func slotNotFound(key entities.SlotKey) error {
	return apperrors.ErrSlotNotFound.WithMessage("time slot %s on %s not found for provider %s", key.SlotID, key.Date, key.ProviderID)
}
