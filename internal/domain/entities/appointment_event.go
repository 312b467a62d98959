package entities

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentEventType represents the type of appointment event
type AppointmentEventType string

const (
	AppointmentEventBooked                AppointmentEventType = "appointment.booked"
	AppointmentEventRescheduled           AppointmentEventType = "appointment.rescheduled"
	AppointmentEventUpdated               AppointmentEventType = "appointment.updated"
	AppointmentEventCancelled             AppointmentEventType = "appointment.cancelled"
	AppointmentEventNotificationRequested AppointmentEventType = "notification.requested"
)

// AppointmentEvent is published after an appointment state transition commits
type AppointmentEvent struct {
	ID             string               `json:"id"`
	EventType      AppointmentEventType `json:"event_type"`
	AppointmentID  string               `json:"appointment_id"`
	ProviderID     string               `json:"provider_id"`
	RequesterID    string               `json:"requester_id"`
	Date           string               `json:"date"`
	TimeSlotID     string               `json:"time_slot_id"`
	PreviousDate   string               `json:"previous_date,omitempty"`
	PreviousSlotID string               `json:"previous_slot_id,omitempty"`
	Status         AppointmentStatus    `json:"status"`
	Timestamp      time.Time            `json:"timestamp"`
	Data           map[string]string    `json:"data,omitempty"`
}

// NewAppointmentEvent builds an event from the appointment's current state
func NewAppointmentEvent(eventType AppointmentEventType, appt *Appointment) *AppointmentEvent {
	return &AppointmentEvent{
		ID:            uuid.New().String(),
		EventType:     eventType,
		AppointmentID: appt.ID,
		ProviderID:    appt.ProviderID,
		RequesterID:   appt.RequesterID,
		Date:          appt.Date,
		TimeSlotID:    appt.TimeSlotID,
		Status:        appt.Status,
		Timestamp:     time.Now().UTC(),
	}
}
