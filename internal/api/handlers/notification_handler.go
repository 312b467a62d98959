package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/careslot/internal/domain/entities"
)

// NotificationService defines the notification request operation
type NotificationService interface {
	Request(ctx context.Context, appointmentID, requesterID string, notificationType entities.NotificationType) (*entities.NotificationReceipt, error)
}

// NotificationHandler handles notification requests
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type notificationRequest struct {
	AppointmentID string                    `json:"appointmentId"`
	Type          entities.NotificationType `json:"type"`
}

// RequestNotification handles POST /api/notifications
func (h *NotificationHandler) RequestNotification(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req notificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	receipt, err := h.service.Request(r.Context(), req.AppointmentID, requester, req.Type)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, receipt)
}
