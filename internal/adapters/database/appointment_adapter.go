package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

var appointmentColumns = []interface{}{
	"id", "provider_id", "requester_id", "appointment_date", "time_slot_id",
	"start_time", "end_time", "status", "symptoms", "notes",
	"created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	now    func() time.Time
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new scheduled appointment under a fresh ID
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) (string, error) {
	if appointment.ProviderID == "" || appointment.RequesterID == "" {
		return "", apperrors.NewValidationError("appointment requires provider and requester")
	}

	id := uuid.New().String()
	now := a.now()

	record := goqu.Record{
		"id":               id,
		"provider_id":      appointment.ProviderID,
		"requester_id":     appointment.RequesterID,
		"appointment_date": appointment.Date,
		"time_slot_id":     appointment.TimeSlotID,
		"start_time":       appointment.StartTime,
		"end_time":         appointment.EndTime,
		"status":           string(entities.AppointmentStatusScheduled),
		"symptoms":         appointment.Symptoms,
		"notes":            appointment.Notes,
		"created_at":       now,
		"updated_at":       now,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return "", apperrors.NewInternalError("failed to create appointment", err)
	}

	appointment.ID = id
	appointment.Status = entities.AppointmentStatusScheduled
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	return id, nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appointmentNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// ListByRequester retrieves a requester's appointments in creation order
func (a *AppointmentAdapter) ListByRequester(ctx context.Context, requesterID string) ([]*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"requester_id": requesterID}).
		Order(goqu.I("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := []*entities.Appointment{}
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}
	return appointments, nil
}

// Update locks the row, applies mutation and writes the result in one transaction
func (a *AppointmentAdapter) Update(ctx context.Context, id string, mutation entities.AppointmentMutation) (*entities.Appointment, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	current, err := scanAppointment(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appointmentNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}

	updated := current.Clone()
	if err := mutation(updated); err != nil {
		return nil, err
	}
	// Identity and ownership are immutable.
	updated.ID = current.ID
	updated.RequesterID = current.RequesterID
	updated.CreatedAt = current.CreatedAt
	updated.Provider = nil
	updated.UpdatedAt = a.now()

	query, args, err = a.db.Update("appointments").
		Set(goqu.Record{
			"provider_id":      updated.ProviderID,
			"appointment_date": updated.Date,
			"time_slot_id":     updated.TimeSlotID,
			"start_time":       updated.StartTime,
			"end_time":         updated.EndTime,
			"status":           string(updated.Status),
			"symptoms":         updated.Symptoms,
			"notes":            updated.Notes,
			"updated_at":       updated.UpdatedAt,
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to update appointment", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit appointment update", err)
	}
	return updated, nil
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var status string
	err := row.Scan(
		&appointment.ID,
		&appointment.ProviderID,
		&appointment.RequesterID,
		&appointment.Date,
		&appointment.TimeSlotID,
		&appointment.StartTime,
		&appointment.EndTime,
		&status,
		&appointment.Symptoms,
		&appointment.Notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appointment.Status = entities.AppointmentStatus(status)
	return appointment, nil
}

func appointmentNotFound(id string) error {
	return apperrors.ErrAppointmentNotFound.WithMessage("appointment %s not found", id)
}
