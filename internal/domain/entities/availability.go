package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	// DateLayout is the calendar date format used for availability and appointments
	DateLayout = "2006-01-02"

	// ClockLayout is the wall-clock format of slot start and end times
	ClockLayout = "15:04"
)

// TimeSlot is an independently bookable interval [StartTime, EndTime) on one date
type TimeSlot struct {
	ID        string
	StartTime string
	EndTime   string
	Occupied  bool
}

type timeSlotJSON struct {
	ID          string `json:"id"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable bool   `json:"isAvailable"`
}

// MarshalJSON exposes occupancy as isAvailable, the field clients already consume
func (s TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSlotJSON{
		ID:          s.ID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsAvailable: !s.Occupied,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (s *TimeSlot) UnmarshalJSON(data []byte) error {
	var wire timeSlotJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = TimeSlot{
		ID:        wire.ID,
		StartTime: wire.StartTime,
		EndTime:   wire.EndTime,
		Occupied:  !wire.IsAvailable,
	}
	return nil
}

// DayAvailability holds one provider's slots for a single date, ordered by start time
type DayAvailability struct {
	Date      string     `json:"date"`
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// SlotKey addresses one slot in one provider's calendar
type SlotKey struct {
	ProviderID string
	Date       string
	SlotID     string
}

// String is the lock and log key for the slot
func (k SlotKey) String() string {
	return "slot:" + k.ProviderID + ":" + k.Date + ":" + k.SlotID
}

// DateRange is a closed interval of calendar dates; an empty bound is open.
type DateRange struct {
	Start string
	End   string
}

// Validate checks both bounds parse and Start <= End
func (r DateRange) Validate() error {
	if r.Start != "" {
		if _, err := time.Parse(DateLayout, r.Start); err != nil {
			return fmt.Errorf("invalid start date %q", r.Start)
		}
	}
	if r.End != "" {
		if _, err := time.Parse(DateLayout, r.End); err != nil {
			return fmt.Errorf("invalid end date %q", r.End)
		}
	}
	if r.Start != "" && r.End != "" && r.Start > r.End {
		return fmt.Errorf("start date %s is after end date %s", r.Start, r.End)
	}
	return nil
}

// Contains reports whether date falls inside the range. Dates in DateLayout
// order lexicographically, so string comparison is exact.
func (r DateRange) Contains(date string) bool {
	if r.Start != "" && date < r.Start {
		return false
	}
	if r.End != "" && date > r.End {
		return false
	}
	return true
}

// CloneCalendar deep-copies a calendar
func CloneCalendar(days []DayAvailability) []DayAvailability {
	if days == nil {
		return nil
	}
	out := make([]DayAvailability, len(days))
	for i, day := range days {
		out[i] = DayAvailability{Date: day.Date, TimeSlots: make([]TimeSlot, len(day.TimeSlots))}
		copy(out[i].TimeSlots, day.TimeSlots)
	}
	return out
}

// NormalizeCalendar returns a sorted copy of days after checking that dates
// are unique and parse, slot ids are unique per date, every slot has
// start < end, and no two slots on a date overlap.
func NormalizeCalendar(days []DayAvailability) ([]DayAvailability, error) {
	out := CloneCalendar(days)
	seenDates := make(map[string]struct{}, len(out))

	for i := range out {
		day := &out[i]
		if _, err := time.Parse(DateLayout, day.Date); err != nil {
			return nil, fmt.Errorf("invalid availability date %q", day.Date)
		}
		if _, dup := seenDates[day.Date]; dup {
			return nil, fmt.Errorf("duplicate availability date %s", day.Date)
		}
		seenDates[day.Date] = struct{}{}

		seenSlots := make(map[string]struct{}, len(day.TimeSlots))
		for _, slot := range day.TimeSlots {
			if slot.ID == "" {
				return nil, fmt.Errorf("slot without id on %s", day.Date)
			}
			if _, dup := seenSlots[slot.ID]; dup {
				return nil, fmt.Errorf("duplicate slot id %s on %s", slot.ID, day.Date)
			}
			seenSlots[slot.ID] = struct{}{}

			start, end, err := slotBounds(slot)
			if err != nil {
				return nil, fmt.Errorf("slot %s on %s: %w", slot.ID, day.Date, err)
			}
			if !start.Before(end) {
				return nil, fmt.Errorf("slot %s on %s: start %s is not before end %s", slot.ID, day.Date, slot.StartTime, slot.EndTime)
			}
		}

		sort.SliceStable(day.TimeSlots, func(a, b int) bool {
			sa, _, _ := slotBounds(day.TimeSlots[a])
			sb, _, _ := slotBounds(day.TimeSlots[b])
			return sa.Before(sb)
		})

		for j := 1; j < len(day.TimeSlots); j++ {
			prev, cur := day.TimeSlots[j-1], day.TimeSlots[j]
			_, prevEnd, _ := slotBounds(prev)
			curStart, _, _ := slotBounds(cur)
			// Half-open intervals: [a,b) and [c,d) with a <= c overlap iff c < b.
			if curStart.Before(prevEnd) {
				return nil, fmt.Errorf("slots %s and %s overlap on %s", prev.ID, cur.ID, day.Date)
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Date < out[b].Date })
	return out, nil
}

func slotBounds(slot TimeSlot) (time.Time, time.Time, error) {
	start, err := time.Parse(ClockLayout, slot.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time %q", slot.StartTime)
	}
	end, err := time.Parse(ClockLayout, slot.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time %q", slot.EndTime)
	}
	return start, end, nil
}
