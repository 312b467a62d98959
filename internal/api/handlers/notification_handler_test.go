package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/careslot/internal/api/handlers"
	"github.com/zatekoja/careslot/internal/domain/entities"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Request(ctx context.Context, appointmentID, requesterID string, notificationType entities.NotificationType) (*entities.NotificationReceipt, error) {
	args := m.Called(ctx, appointmentID, requesterID, notificationType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.NotificationReceipt), args.Error(1)
}

func TestNotificationHandler_RequestNotification(t *testing.T) {
	service := new(MockNotificationService)
	handler := handlers.NewNotificationHandler(service)

	service.On("Request", mock.Anything, "a1", "user-1", entities.NotificationReminder).
		Return(&entities.NotificationReceipt{Message: "Reminder requested", AppointmentID: "a1", Type: entities.NotificationReminder, Queued: true}, nil)
	service.On("Request", mock.Anything, "a1", "user-1", entities.NotificationType("fax")).
		Return(nil, apperrors.NewValidationError("notification type must be \"confirmation\" or \"reminder\""))
	service.On("Request", mock.Anything, "a2", "user-1", entities.NotificationConfirmation).
		Return(nil, apperrors.NewExternalError("failed to queue notification", errors.New("redis down")))

	w := serve(handler.RequestNotification, "POST /api/notifications",
		jsonRequest(http.MethodPost, "/api/notifications", map[string]string{"appointmentId": "a1", "type": "reminder"}))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"queued":true`)

	w = serve(handler.RequestNotification, "POST /api/notifications",
		jsonRequest(http.MethodPost, "/api/notifications", map[string]string{"appointmentId": "a1", "type": "fax"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(handler.RequestNotification, "POST /api/notifications",
		jsonRequest(http.MethodPost, "/api/notifications", map[string]string{"appointmentId": "a2", "type": "confirmation"}))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
