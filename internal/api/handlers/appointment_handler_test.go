package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/careslot/internal/api/handlers"
	"github.com/zatekoja/careslot/internal/api/middleware"
	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/entities"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// MockSchedulingService defines the mock service
type MockSchedulingService struct {
	mock.Mock
}

func (m *MockSchedulingService) Book(ctx context.Context, cmd services.BookAppointmentCommand) (*entities.Appointment, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockSchedulingService) Reschedule(ctx context.Context, cmd services.UpdateAppointmentCommand) (*entities.Appointment, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockSchedulingService) Cancel(ctx context.Context, appointmentID, requesterID string) (*entities.Appointment, error) {
	args := m.Called(ctx, appointmentID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockSchedulingService) Get(ctx context.Context, appointmentID, requesterID string) (*entities.Appointment, error) {
	args := m.Called(ctx, appointmentID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockSchedulingService) ListMine(ctx context.Context, requesterID string) ([]*entities.Appointment, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

// serve runs h behind the requester middleware the router installs
func serve(h http.HandlerFunc, pattern string, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, h)
	w := httptest.NewRecorder()
	middleware.Requester("")(mux).ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	var body bytes.Buffer
	if s, ok := payload.(string); ok {
		body.WriteString(s)
	} else {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(middleware.RequesterHeader, "user-1")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAppointmentHandler_BookAppointment(t *testing.T) {
	t.Run("successfully books appointment", func(t *testing.T) {
		mockService := new(MockSchedulingService)
		handler := handlers.NewAppointmentHandler(mockService)

		mockService.On("Book", mock.Anything, services.BookAppointmentCommand{
			ProviderID:  "p1",
			Date:        "2025-01-10",
			TimeSlotID:  "s1",
			RequesterID: "user-1",
			Symptoms:    "cough",
		}).Return(&entities.Appointment{ID: "a1", ProviderID: "p1", Status: entities.AppointmentStatusScheduled}, nil)

		req := jsonRequest(http.MethodPost, "/api/appointments", map[string]string{
			"doctorId":   "p1",
			"date":       "2025-01-10",
			"timeSlotId": "s1",
			"symptoms":   "cough",
		})
		w := serve(handler.BookAppointment, "POST /api/appointments", req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var appt entities.Appointment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
		assert.Equal(t, "a1", appt.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("returns bad request for invalid payload", func(t *testing.T) {
		mockService := new(MockSchedulingService)
		handler := handlers.NewAppointmentHandler(mockService)

		w := serve(handler.BookAppointment, "POST /api/appointments", jsonRequest(http.MethodPost, "/api/appointments", "invalid-json"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
	})

	t.Run("returns unauthorized without requester", func(t *testing.T) {
		mockService := new(MockSchedulingService)
		handler := handlers.NewAppointmentHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString(`{}`))
		w := serve(handler.BookAppointment, "POST /api/appointments", req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("maps domain errors to status codes", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{apperrors.ErrSlotUnavailable, http.StatusConflict, "SLOT_UNAVAILABLE"},
			{apperrors.ErrSlotBusy, http.StatusConflict, "SLOT_BUSY"},
			{apperrors.ErrProviderNotFound.WithMessage("provider p9 not found"), http.StatusNotFound, "PROVIDER_NOT_FOUND"},
			{apperrors.ErrSlotNotFound, http.StatusNotFound, "SLOT_NOT_FOUND"},
			{apperrors.NewValidationError("date must be YYYY-MM-DD"), http.StatusBadRequest, "INVALID_PARAMETERS"},
			{apperrors.NewInternalError("store failed", errors.New("disk full")), http.StatusInternalServerError, ""},
			{errors.New("boom"), http.StatusInternalServerError, ""},
		}

		for _, tc := range cases {
			mockService := new(MockSchedulingService)
			handler := handlers.NewAppointmentHandler(mockService)
			mockService.On("Book", mock.Anything, mock.Anything).Return(nil, tc.err)

			req := jsonRequest(http.MethodPost, "/api/appointments", map[string]string{"providerId": "p1"})
			w := serve(handler.BookAppointment, "POST /api/appointments", req)

			assert.Equal(t, tc.status, w.Code, tc.err.Error())
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, body["error"], "disk full")
		}
	})
}

func TestAppointmentHandler_UpdateAppointment(t *testing.T) {
	mockService := new(MockSchedulingService)
	handler := handlers.NewAppointmentHandler(mockService)

	mockService.On("Reschedule", mock.Anything, mock.MatchedBy(func(cmd services.UpdateAppointmentCommand) bool {
		return cmd.AppointmentID == "a1" &&
			cmd.RequesterID == "user-1" &&
			cmd.Date != nil && *cmd.Date == "2025-01-11" &&
			cmd.TimeSlotID != nil && *cmd.TimeSlotID == "s4" &&
			cmd.Notes == nil
	})).Return(&entities.Appointment{ID: "a1", TimeSlotID: "s4"}, nil)

	req := jsonRequest(http.MethodPut, "/api/appointments/a1", map[string]string{"date": "2025-01-11", "timeSlotId": "s4"})
	w := serve(handler.UpdateAppointment, "PUT /api/appointments/{id}", req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestAppointmentHandler_CancelAppointment(t *testing.T) {
	mockService := new(MockSchedulingService)
	handler := handlers.NewAppointmentHandler(mockService)

	mockService.On("Cancel", mock.Anything, "a1", "user-1").
		Return(&entities.Appointment{ID: "a1", Status: entities.AppointmentStatusCancelled}, nil)
	mockService.On("Cancel", mock.Anything, "a2", "user-1").
		Return(nil, apperrors.ErrAppointmentNotFound)

	w := serve(handler.CancelAppointment, "DELETE /api/appointments/{id}", jsonRequest(http.MethodDelete, "/api/appointments/a1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Appointment cancelled successfully")
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)

	w = serve(handler.CancelAppointment, "DELETE /api/appointments/{id}", jsonRequest(http.MethodDelete, "/api/appointments/a2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointmentHandler_ListMyAppointments(t *testing.T) {
	mockService := new(MockSchedulingService)
	handler := handlers.NewAppointmentHandler(mockService)

	mockService.On("ListMine", mock.Anything, "user-1").Return([]*entities.Appointment{{ID: "a1"}, {ID: "a2"}}, nil)

	w := serve(handler.ListMyAppointments, "GET /api/appointments/mine", jsonRequest(http.MethodGet, "/api/appointments/mine", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var list []entities.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}
