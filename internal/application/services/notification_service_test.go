package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

func TestNotificationService_Request(t *testing.T) {
	scheduling, st, _ := newScheduling(t)
	ctx := context.Background()
	appt, err := scheduling.Book(ctx, bookCmd("s1", "u1"))
	require.NoError(t, err)

	t.Run("queues on the notification channel", func(t *testing.T) {
		bus := new(MockEventBus)
		bus.On("Publish", mock.Anything, providers.EventChannelNotifications, mock.MatchedBy(func(e *entities.AppointmentEvent) bool {
			return e.EventType == entities.AppointmentEventNotificationRequested &&
				e.AppointmentID == appt.ID &&
				e.Data["type"] == "reminder"
		})).Return(nil).Once()

		receipt, err := services.NewNotificationService(st.appointments, bus).Request(ctx, appt.ID, "u1", entities.NotificationReminder)
		require.NoError(t, err)
		assert.True(t, receipt.Queued)
		assert.Equal(t, "Reminder requested", receipt.Message)
		assert.Equal(t, appt.ID, receipt.AppointmentID)
		bus.AssertExpectations(t)
	})

	t.Run("acknowledges without a bus", func(t *testing.T) {
		receipt, err := services.NewNotificationService(st.appointments, nil).Request(ctx, appt.ID, "u1", entities.NotificationConfirmation)
		require.NoError(t, err)
		assert.False(t, receipt.Queued)
		assert.Equal(t, "Confirmation requested", receipt.Message)
	})

	t.Run("bus failure is reported", func(t *testing.T) {
		bus := new(MockEventBus)
		bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		_, err := services.NewNotificationService(st.appointments, bus).Request(ctx, appt.ID, "u1", entities.NotificationConfirmation)
		assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
	})

	t.Run("validation", func(t *testing.T) {
		svc := services.NewNotificationService(st.appointments, nil)

		_, err := svc.Request(ctx, appt.ID, "u1", entities.NotificationType("sms"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidParameters)

		_, err = svc.Request(ctx, "missing", "u1", entities.NotificationReminder)
		assert.ErrorIs(t, err, apperrors.ErrAppointmentNotFound)

		_, err = svc.Request(ctx, appt.ID, "u2", entities.NotificationReminder)
		assert.ErrorIs(t, err, apperrors.ErrAppointmentNotFound)
	})
}
