package entities

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationConfirmation NotificationType = "confirmation"
	NotificationReminder     NotificationType = "reminder"
)

// IsValid reports whether t is a supported notification type
func (t NotificationType) IsValid() bool {
	return t == NotificationConfirmation || t == NotificationReminder
}

// NotificationReceipt acknowledges a queued notification request. Delivery
// happens downstream of the event bus.
type NotificationReceipt struct {
	Message       string           `json:"message"`
	AppointmentID string           `json:"appointmentId"`
	Type          NotificationType `json:"type"`
	Queued        bool             `json:"queued"`
}
