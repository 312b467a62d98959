package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// State transitions:
//
//	scheduled -> cancelled
//
// cancelled is terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled: {AppointmentStatusCancelled},
	AppointmentStatusCancelled: {},
}

// CanTransitionTo reports whether the status machine allows s -> next
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is a requester's claim on one provider slot. StartTime and
// EndTime are copied from the slot at the last successful book or reschedule.
type Appointment struct {
	ID          string            `json:"id" db:"id"`
	ProviderID  string            `json:"providerId" db:"provider_id"`
	RequesterID string            `json:"userId" db:"requester_id"`
	Date        string            `json:"date" db:"date"`
	TimeSlotID  string            `json:"timeSlotId" db:"time_slot_id"`
	StartTime   string            `json:"startTime" db:"start_time"`
	EndTime     string            `json:"endTime" db:"end_time"`
	Status      AppointmentStatus `json:"status" db:"status"`
	Symptoms    string            `json:"symptoms,omitempty" db:"symptoms"`
	Notes       string            `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`

	// Provider is attached for responses only and never persisted.
	Provider *Provider `json:"provider,omitempty" db:"-"`
}

// SlotKey returns the slot this appointment references
func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{ProviderID: a.ProviderID, Date: a.Date, SlotID: a.TimeSlotID}
}

// IsLive reports whether the appointment currently holds its slot
func (a *Appointment) IsLive() bool {
	return a.Status == AppointmentStatusScheduled
}

// Clone returns a copy safe to hand across store boundaries
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	out := *a
	out.Provider = a.Provider.Clone()
	return &out
}

// AppointmentMutation edits an appointment in place inside a store update
type AppointmentMutation func(a *Appointment) error
