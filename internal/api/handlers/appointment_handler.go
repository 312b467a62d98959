package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/entities"
)

// SchedulingService defines the appointment operations the handler needs
type SchedulingService interface {
	Book(ctx context.Context, cmd services.BookAppointmentCommand) (*entities.Appointment, error)
	Reschedule(ctx context.Context, cmd services.UpdateAppointmentCommand) (*entities.Appointment, error)
	Cancel(ctx context.Context, appointmentID, requesterID string) (*entities.Appointment, error)
	Get(ctx context.Context, appointmentID, requesterID string) (*entities.Appointment, error)
	ListMine(ctx context.Context, requesterID string) ([]*entities.Appointment, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service SchedulingService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service SchedulingService) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
	}
}

// bookRequest accepts doctorId as an alias of providerId
type bookRequest struct {
	ProviderID string `json:"providerId"`
	DoctorID   string `json:"doctorId"`
	Date       string `json:"date"`
	TimeSlotID string `json:"timeSlotId"`
	Symptoms   string `json:"symptoms"`
	Notes      string `json:"notes"`
}

type updateRequest struct {
	Date       *string `json:"date"`
	TimeSlotID *string `json:"timeSlotId"`
	Notes      *string `json:"notes"`
}

type cancelResponse struct {
	Message     string                `json:"message"`
	Appointment *entities.Appointment `json:"appointment"`
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	providerID := req.ProviderID
	if providerID == "" {
		providerID = req.DoctorID
	}

	appt, err := h.service.Book(r.Context(), services.BookAppointmentCommand{
		ProviderID:  providerID,
		Date:        req.Date,
		TimeSlotID:  req.TimeSlotID,
		RequesterID: requester,
		Symptoms:    req.Symptoms,
		Notes:       req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appt)
}

// ListMyAppointments handles GET /api/appointments/mine
func (h *AppointmentHandler) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointments, err := h.service.ListMine(r.Context(), requester)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointments)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appt, err := h.service.Get(r.Context(), r.PathValue("id"), requester)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appt)
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), services.UpdateAppointmentCommand{
		AppointmentID: r.PathValue("id"),
		RequesterID:   requester,
		Date:          req.Date,
		TimeSlotID:    req.TimeSlotID,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appt)
}

// CancelAppointment handles DELETE /api/appointments/{id}
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	requester, err := requesterID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appt, err := h.service.Cancel(r.Context(), r.PathValue("id"), requester)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cancelResponse{
		Message:     "Appointment cancelled successfully",
		Appointment: appt,
	})
}
