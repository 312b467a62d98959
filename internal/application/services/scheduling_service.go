package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zatekoja/careslot/internal/application/loaders"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// maxLockAttempts bounds how often reschedule and cancel re-read an
// appointment whose slot moved between the unlocked read and the lock.
const maxLockAttempts = 3

// BookAppointmentCommand carries the inputs of a booking
type BookAppointmentCommand struct {
	ProviderID  string
	Date        string
	TimeSlotID  string
	RequesterID string
	Symptoms    string
	Notes       string
}

// UpdateAppointmentCommand carries a reschedule and/or notes update. Date and
// TimeSlotID move the appointment and must be given together; a nil field is
// left unchanged.
type UpdateAppointmentCommand struct {
	AppointmentID string
	RequesterID   string
	Date          *string
	TimeSlotID    *string
	Notes         *string
}

// SchedulingService is the only writer of slot occupancy and appointment
// state. Every read-then-write of occupancy runs under the SlotLocker for
// exactly the slot and appointment keys it touches.
type SchedulingService struct {
	providerRepo     repositories.ProviderRepository
	availabilityRepo repositories.AvailabilityRepository
	appointmentRepo  repositories.AppointmentRepository
	locker           providers.SlotLocker
	eventBus         providers.EventBus
	metrics          *observability.Metrics
}

// NewSchedulingService creates a new scheduling service. eventBus and
// metrics may be nil.
func NewSchedulingService(
	providerRepo repositories.ProviderRepository,
	availabilityRepo repositories.AvailabilityRepository,
	appointmentRepo repositories.AppointmentRepository,
	locker providers.SlotLocker,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) *SchedulingService {
	return &SchedulingService{
		providerRepo:     providerRepo,
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		locker:           locker,
		eventBus:         eventBus,
		metrics:          metrics,
	}
}

// Book claims a free slot and creates a scheduled appointment for it.
// Concurrent bookings of one slot are first-committer-wins; the rest fail
// with ErrSlotUnavailable.
func (s *SchedulingService) Book(ctx context.Context, cmd BookAppointmentCommand) (appt *entities.Appointment, err error) {
	ctx, span := observability.StartSpan(ctx, "SchedulingService.Book")
	defer span.End()
	defer func() { s.finish(ctx, span, "book", err) }()

	if err := validateBook(cmd); err != nil {
		return nil, err
	}

	provider, err := s.providerRepo.GetByID(ctx, cmd.ProviderID)
	if err != nil {
		return nil, err
	}

	key := entities.SlotKey{ProviderID: cmd.ProviderID, Date: cmd.Date, SlotID: cmd.TimeSlotID}
	observability.SetSpanAttributes(span, attribute.String("slot.key", key.String()))

	unlock, err := s.lock(ctx, "book", key.String())
	if err != nil {
		return nil, err
	}
	appt, err = s.bookLocked(ctx, key, cmd)
	unlock()
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appt.ID).
		Str("slot", key.String()).
		Str("requester_id", appt.RequesterID).
		Msg("appointment booked")
	s.publish(ctx, entities.NewAppointmentEvent(entities.AppointmentEventBooked, appt))

	appt.Provider = provider
	return appt, nil
}

func (s *SchedulingService) bookLocked(ctx context.Context, key entities.SlotKey, cmd BookAppointmentCommand) (*entities.Appointment, error) {
	slot, err := s.availabilityRepo.GetSlot(ctx, key)
	if err != nil {
		return nil, err
	}
	if slot.Occupied {
		return nil, apperrors.ErrSlotUnavailable.WithMessage("time slot %s on %s is already booked", key.SlotID, key.Date)
	}

	if err := s.availabilityRepo.SetOccupied(ctx, key, true); err != nil {
		return nil, err
	}

	appt := &entities.Appointment{
		ProviderID:  cmd.ProviderID,
		RequesterID: cmd.RequesterID,
		Date:        cmd.Date,
		TimeSlotID:  cmd.TimeSlotID,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Symptoms:    cmd.Symptoms,
		Notes:       cmd.Notes,
	}
	if _, err := s.appointmentRepo.Create(ctx, appt); err != nil {
		s.compensate(ctx, err, repositories.OccupancyChange{Key: key, Occupied: false})
		return nil, err
	}
	return appt, nil
}

// Reschedule moves an appointment to another slot and/or replaces its notes.
// Releasing the old slot and claiming the new one happen under both slot
// locks, so no observer sees both free or both held by this appointment.
func (s *SchedulingService) Reschedule(ctx context.Context, cmd UpdateAppointmentCommand) (appt *entities.Appointment, err error) {
	ctx, span := observability.StartSpan(ctx, "SchedulingService.Reschedule")
	defer span.End()
	defer func() { s.finish(ctx, span, "reschedule", err) }()

	if err := validateUpdate(cmd); err != nil {
		return nil, err
	}
	observability.SetSpanAttributes(span, attribute.String("appointment.id", cmd.AppointmentID))

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, err := s.getOwned(ctx, cmd.AppointmentID, cmd.RequesterID)
		if err != nil {
			return nil, err
		}

		moving := cmd.Date != nil &&
			(*cmd.Date != current.Date || *cmd.TimeSlotID != current.TimeSlotID)
		if !moving {
			return s.updateNotes(ctx, current, cmd.Notes)
		}
		if !current.IsLive() {
			return nil, apperrors.ErrAlreadyTerminal.WithMessage("appointment %s is cancelled and cannot be rescheduled", current.ID)
		}

		oldKey := current.SlotKey()
		newKey := entities.SlotKey{ProviderID: current.ProviderID, Date: *cmd.Date, SlotID: *cmd.TimeSlotID}

		unlock, err := s.lock(ctx, "reschedule", providers.AppointmentLockKey(current.ID), oldKey.String(), newKey.String())
		if err != nil {
			return nil, err
		}
		appt, stale, err := s.rescheduleLocked(ctx, current, oldKey, newKey, cmd.Notes)
		unlock()
		if stale {
			continue
		}
		if err != nil {
			return nil, err
		}

		observability.LoggerFromContext(ctx).Info().
			Str("appointment_id", appt.ID).
			Str("from_slot", oldKey.String()).
			Str("to_slot", newKey.String()).
			Msg("appointment rescheduled")

		event := entities.NewAppointmentEvent(entities.AppointmentEventRescheduled, appt)
		event.PreviousDate = oldKey.Date
		event.PreviousSlotID = oldKey.SlotID
		s.publish(ctx, event)

		s.attachProvider(ctx, appt)
		return appt, nil
	}

	return nil, apperrors.ErrSlotBusy.WithMessage("appointment %s changed concurrently, retry", cmd.AppointmentID)
}

// rescheduleLocked runs with the appointment and both slot keys held. stale
// reports that the appointment moved after the keys were chosen.
func (s *SchedulingService) rescheduleLocked(
	ctx context.Context,
	snapshot *entities.Appointment,
	oldKey, newKey entities.SlotKey,
	notes *string,
) (*entities.Appointment, bool, error) {
	current, err := s.appointmentRepo.GetByID(ctx, snapshot.ID)
	if err != nil {
		return nil, false, err
	}
	if current.SlotKey() != oldKey {
		return nil, true, nil
	}
	if !current.IsLive() {
		return nil, false, apperrors.ErrAlreadyTerminal.WithMessage("appointment %s is cancelled and cannot be rescheduled", current.ID)
	}

	newSlot, err := s.availabilityRepo.GetSlot(ctx, newKey)
	if err != nil {
		return nil, false, err
	}
	if newSlot.Occupied {
		return nil, false, apperrors.ErrSlotUnavailable.WithMessage("time slot %s on %s is already booked", newKey.SlotID, newKey.Date)
	}

	// Release and claim in one store write so availability readers see
	// either the old slot held or the new one, never both free.
	changes := []repositories.OccupancyChange{{Key: newKey, Occupied: true}}
	if _, err := s.availabilityRepo.GetSlot(ctx, oldKey); err == nil {
		changes = append(changes, repositories.OccupancyChange{Key: oldKey, Occupied: false})
	} else if apperrors.IsNotFound(err) {
		observability.LoggerFromContext(ctx).Warn().
			Str("appointment_id", current.ID).
			Str("slot", oldKey.String()).
			Msg("previous slot no longer exists, skipping release")
	} else {
		return nil, false, err
	}

	if err := s.availabilityRepo.SetOccupiedBatch(ctx, changes); err != nil {
		return nil, false, err
	}

	updated, err := s.appointmentRepo.Update(ctx, current.ID, func(a *entities.Appointment) error {
		if !a.IsLive() {
			return apperrors.ErrAlreadyTerminal.WithMessage("appointment %s is cancelled and cannot be rescheduled", a.ID)
		}
		a.Date = newKey.Date
		a.TimeSlotID = newKey.SlotID
		a.StartTime = newSlot.StartTime
		a.EndTime = newSlot.EndTime
		if notes != nil {
			a.Notes = *notes
		}
		return nil
	})
	if err != nil {
		s.compensate(ctx, err, invert(changes)...)
		return nil, false, err
	}
	return updated, false, nil
}

// updateNotes applies a notes-only update. Cancelled appointments accept it
// as a history annotation.
func (s *SchedulingService) updateNotes(ctx context.Context, current *entities.Appointment, notes *string) (*entities.Appointment, error) {
	if notes == nil {
		s.attachProvider(ctx, current)
		return current, nil
	}

	unlock, err := s.lock(ctx, "update", providers.AppointmentLockKey(current.ID))
	if err != nil {
		return nil, err
	}
	updated, err := s.appointmentRepo.Update(ctx, current.ID, func(a *entities.Appointment) error {
		a.Notes = *notes
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewAppointmentEvent(entities.AppointmentEventUpdated, updated))
	s.attachProvider(ctx, updated)
	return updated, nil
}

// Cancel releases the appointment's slot and marks it cancelled. Cancelling
// a cancelled appointment returns it unchanged.
func (s *SchedulingService) Cancel(ctx context.Context, appointmentID, requesterID string) (appt *entities.Appointment, err error) {
	ctx, span := observability.StartSpan(ctx, "SchedulingService.Cancel")
	defer span.End()
	defer func() { s.finish(ctx, span, "cancel", err) }()

	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}
	observability.SetSpanAttributes(span, attribute.String("appointment.id", appointmentID))

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, err := s.getOwned(ctx, appointmentID, requesterID)
		if err != nil {
			return nil, err
		}
		if !current.IsLive() {
			return current, nil
		}

		key := current.SlotKey()
		unlock, err := s.lock(ctx, "cancel", providers.AppointmentLockKey(current.ID), key.String())
		if err != nil {
			return nil, err
		}
		appt, changed, stale, err := s.cancelLocked(ctx, current.ID, key)
		unlock()
		if stale {
			continue
		}
		if err != nil {
			return nil, err
		}

		if changed {
			observability.LoggerFromContext(ctx).Info().
				Str("appointment_id", appt.ID).
				Str("slot", key.String()).
				Msg("appointment cancelled")
			s.publish(ctx, entities.NewAppointmentEvent(entities.AppointmentEventCancelled, appt))
		}
		return appt, nil
	}

	return nil, apperrors.ErrSlotBusy.WithMessage("appointment %s changed concurrently, retry", appointmentID)
}

func (s *SchedulingService) cancelLocked(ctx context.Context, id string, key entities.SlotKey) (appt *entities.Appointment, changed, stale bool, err error) {
	current, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, false, false, err
	}
	if !current.IsLive() {
		return current, false, false, nil
	}
	if current.SlotKey() != key {
		return nil, false, true, nil
	}

	released := true
	if err := s.availabilityRepo.SetOccupied(ctx, key, false); err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, false, false, err
		}
		released = false
		observability.LoggerFromContext(ctx).Warn().
			Str("appointment_id", id).
			Str("slot", key.String()).
			Msg("slot no longer exists, cancelling without release")
	}

	updated, err := s.appointmentRepo.Update(ctx, id, func(a *entities.Appointment) error {
		if !a.Status.CanTransitionTo(entities.AppointmentStatusCancelled) {
			return apperrors.ErrAlreadyTerminal.WithMessage("appointment %s is already %s", a.ID, a.Status)
		}
		a.Status = entities.AppointmentStatusCancelled
		return nil
	})
	if err != nil {
		if released {
			s.compensate(ctx, err, repositories.OccupancyChange{Key: key, Occupied: true})
		}
		return nil, false, false, err
	}
	return updated, true, false, nil
}

// Get returns one of the requester's appointments with its provider embedded
func (s *SchedulingService) Get(ctx context.Context, appointmentID, requesterID string) (*entities.Appointment, error) {
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}
	appt, err := s.getOwned(ctx, appointmentID, requesterID)
	if err != nil {
		return nil, err
	}
	s.attachProvider(ctx, appt)
	return appt, nil
}

// ListMine returns the requester's appointments in creation order with
// providers embedded through one batched lookup
func (s *SchedulingService) ListMine(ctx context.Context, requesterID string) ([]*entities.Appointment, error) {
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}

	appts, err := s.appointmentRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return []*entities.Appointment{}, nil
	}

	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.providerRepo)
	}
	ids := make([]string, len(appts))
	for i, a := range appts {
		ids[i] = a.ProviderID
	}
	for i, p := range l.LoadProviders(ctx, ids) {
		appts[i].Provider = p
	}
	return appts, nil
}

func (s *SchedulingService) getOwned(ctx context.Context, appointmentID, requesterID string) (*entities.Appointment, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return nil, apperrors.NewValidationError("appointment id is required")
	}
	appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	// Other requesters' appointments are reported as missing.
	if appt.RequesterID != requesterID {
		return nil, apperrors.ErrAppointmentNotFound.WithMessage("appointment %s not found", appointmentID)
	}
	return appt, nil
}

func (s *SchedulingService) lock(ctx context.Context, operation string, keys ...string) (providers.UnlockFunc, error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, keys...)
	observability.RecordLockWait(ctx, s.metrics, operation, time.Since(start))
	return unlock, err
}

// compensate restores occupancy after a later step failed. It runs before
// the locks are released, so no other operation observes the interim state.
func (s *SchedulingService) compensate(ctx context.Context, cause error, changes ...repositories.OccupancyChange) {
	logger := observability.LoggerFromContext(ctx)
	if err := s.availabilityRepo.SetOccupiedBatch(ctx, changes); err != nil {
		logger.Error().Err(err).AnErr("cause", cause).
			Int("slots", len(changes)).
			Msg("failed to revert slot occupancy")
		return
	}
	for _, c := range changes {
		logger.Warn().Err(cause).
			Str("slot", c.Key.String()).
			Bool("occupied", c.Occupied).
			Msg("reverted slot occupancy after failed write")
	}
}

func invert(changes []repositories.OccupancyChange) []repositories.OccupancyChange {
	out := make([]repositories.OccupancyChange, len(changes))
	for i, c := range changes {
		out[i] = repositories.OccupancyChange{Key: c.Key, Occupied: !c.Occupied}
	}
	return out
}

func (s *SchedulingService) publish(ctx context.Context, event *entities.AppointmentEvent) {
	if s.eventBus == nil {
		return
	}
	for _, channel := range []string{providers.EventChannelAppointments, providers.GetProviderChannel(event.ProviderID)} {
		if err := s.eventBus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Error().Err(err).
				Str("event_type", string(event.EventType)).
				Str("appointment_id", event.AppointmentID).
				Str("channel", channel).
				Msg("failed to publish appointment event")
		}
	}
}

func (s *SchedulingService) attachProvider(ctx context.Context, appt *entities.Appointment) {
	provider, err := s.providerRepo.GetByID(ctx, appt.ProviderID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("provider_id", appt.ProviderID).
			Msg("failed to load provider for appointment")
		return
	}
	appt.Provider = provider
}

func (s *SchedulingService) finish(ctx context.Context, span trace.Span, operation string, err error) {
	result := "success"
	if err != nil {
		observability.RecordError(span, err)
		result = outcome(err)
	}
	observability.RecordSchedulingMetric(ctx, s.metrics, operation, result)
}

func outcome(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code != "" {
			return strings.ToLower(string(appErr.Code))
		}
		return strings.ToLower(string(appErr.Type))
	}
	return "error"
}

func requireRequester(requesterID string) error {
	if strings.TrimSpace(requesterID) == "" {
		return apperrors.NewUnauthorizedError("requester identity is required")
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(entities.DateLayout, date); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("date %q must be YYYY-MM-DD", date))
	}
	return nil
}

func validateBook(cmd BookAppointmentCommand) error {
	if err := requireRequester(cmd.RequesterID); err != nil {
		return err
	}
	if strings.TrimSpace(cmd.ProviderID) == "" {
		return apperrors.NewValidationError("providerId is required")
	}
	if strings.TrimSpace(cmd.TimeSlotID) == "" {
		return apperrors.NewValidationError("timeSlotId is required")
	}
	return validateDate(cmd.Date)
}

func validateUpdate(cmd UpdateAppointmentCommand) error {
	if err := requireRequester(cmd.RequesterID); err != nil {
		return err
	}
	if (cmd.Date == nil) != (cmd.TimeSlotID == nil) {
		return apperrors.NewValidationError("date and timeSlotId must be provided together")
	}
	if cmd.Date != nil {
		if strings.TrimSpace(*cmd.TimeSlotID) == "" {
			return apperrors.NewValidationError("timeSlotId is required")
		}
		return validateDate(*cmd.Date)
	}
	return nil
}
