package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// NotificationService accepts confirmation and reminder requests and hands
// them to the event bus. Delivery (SMS, email) is done by a downstream
// consumer of EventChannelNotifications.
type NotificationService struct {
	appointmentRepo repositories.AppointmentRepository
	eventBus        providers.EventBus
}

// NewNotificationService creates a new notification service. eventBus may
// be nil, in which case requests are acknowledged but not queued.
func NewNotificationService(appointmentRepo repositories.AppointmentRepository, eventBus providers.EventBus) *NotificationService {
	return &NotificationService{
		appointmentRepo: appointmentRepo,
		eventBus:        eventBus,
	}
}

// Request validates the appointment and queues a notification for it
func (n *NotificationService) Request(ctx context.Context, appointmentID, requesterID string, notificationType entities.NotificationType) (*entities.NotificationReceipt, error) {
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}
	if !notificationType.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("notification type must be %q or %q", entities.NotificationConfirmation, entities.NotificationReminder))
	}
	if strings.TrimSpace(appointmentID) == "" {
		return nil, apperrors.NewValidationError("appointmentId is required")
	}

	appt, err := n.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.RequesterID != requesterID {
		return nil, apperrors.ErrAppointmentNotFound.WithMessage("appointment %s not found", appointmentID)
	}

	receipt := &entities.NotificationReceipt{
		Message:       fmt.Sprintf("%s%s requested", strings.ToUpper(string(notificationType[:1])), notificationType[1:]),
		AppointmentID: appt.ID,
		Type:          notificationType,
	}

	if n.eventBus == nil {
		return receipt, nil
	}

	event := entities.NewAppointmentEvent(entities.AppointmentEventNotificationRequested, appt)
	event.Data = map[string]string{"type": string(notificationType)}
	if err := n.eventBus.Publish(ctx, providers.EventChannelNotifications, event); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("appointment_id", appt.ID).
			Str("type", string(notificationType)).
			Msg("failed to queue notification")
		return nil, apperrors.NewExternalError("failed to queue notification", err)
	}
	receipt.Queued = true
	return receipt, nil
}
