package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// AvailabilityAdapter implements the AvailabilityRepository interface over
// the time_slots table. Days without slots are not persisted.
type AvailabilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAvailabilityAdapter creates a new availability adapter
func NewAvailabilityAdapter(client *postgres.Client) repositories.AvailabilityRepository {
	return &AvailabilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetSlot resolves one slot
func (a *AvailabilityAdapter) GetSlot(ctx context.Context, key entities.SlotKey) (*entities.TimeSlot, error) {
	query, args, err := a.db.Select("slot_id", "start_time", "end_time", "occupied").
		From("time_slots").
		Where(slotWhere(key)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slot := &entities.TimeSlot{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&slot.ID, &slot.StartTime, &slot.EndTime, &slot.Occupied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, slotNotFound(key)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get time slot", err)
	}
	return slot, nil
}

// SetOccupied sets one slot's occupancy flag
func (a *AvailabilityAdapter) SetOccupied(ctx context.Context, key entities.SlotKey, occupied bool) error {
	return a.SetOccupiedBatch(ctx, []repositories.OccupancyChange{{Key: key, Occupied: occupied}})
}

// SetOccupiedBatch applies every change in one transaction
func (a *AvailabilityAdapter) SetOccupiedBatch(ctx context.Context, changes []repositories.OccupancyChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, change := range changes {
		query, args, err := a.db.Update("time_slots").
			Set(goqu.Record{"occupied": change.Occupied}).
			Where(slotWhere(change.Key)).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build update query", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return apperrors.NewInternalError("failed to update time slot", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return apperrors.NewInternalError("failed to get rows affected", err)
		}
		if rowsAffected == 0 {
			return slotNotFound(change.Key)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit occupancy change", err)
	}
	return nil
}

// ListAvailability returns the provider's days inside dateRange, ordered by date and start time
func (a *AvailabilityAdapter) ListAvailability(ctx context.Context, providerID string, dateRange entities.DateRange) ([]entities.DayAvailability, error) {
	if err := a.requireProvider(ctx, providerID); err != nil {
		return nil, err
	}

	ds := a.db.Select("slot_date", "slot_id", "start_time", "end_time", "occupied").
		From("time_slots").
		Where(goqu.Ex{"provider_id": providerID})
	if dateRange.Start != "" {
		ds = ds.Where(goqu.C("slot_date").Gte(dateRange.Start))
	}
	if dateRange.End != "" {
		ds = ds.Where(goqu.C("slot_date").Lte(dateRange.End))
	}

	query, args, err := ds.Order(goqu.I("slot_date").Asc(), goqu.I("start_time").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list availability", err)
	}
	defer rows.Close()

	days := []entities.DayAvailability{}
	for rows.Next() {
		var date string
		var slot entities.TimeSlot
		if err := rows.Scan(&date, &slot.ID, &slot.StartTime, &slot.EndTime, &slot.Occupied); err != nil {
			return nil, apperrors.NewInternalError("failed to scan time slot", err)
		}
		if n := len(days); n == 0 || days[n-1].Date != date {
			days = append(days, entities.DayAvailability{Date: date, TimeSlots: []entities.TimeSlot{}})
		}
		last := &days[len(days)-1]
		last.TimeSlots = append(last.TimeSlots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate time slots", err)
	}
	return days, nil
}

// ReplaceCalendar deletes the provider's slots and inserts the normalized calendar
func (a *AvailabilityAdapter) ReplaceCalendar(ctx context.Context, providerID string, days []entities.DayAvailability) error {
	normalized, err := entities.NormalizeCalendar(days)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query, args, err := a.db.Delete("time_slots").Where(goqu.Ex{"provider_id": providerID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to clear calendar", err)
	}

	var records []interface{}
	for _, day := range normalized {
		for _, slot := range day.TimeSlots {
			records = append(records, goqu.Record{
				"provider_id": providerID,
				"slot_date":   day.Date,
				"slot_id":     slot.ID,
				"start_time":  slot.StartTime,
				"end_time":    slot.EndTime,
				"occupied":    slot.Occupied,
			})
		}
	}

	if len(records) > 0 {
		query, args, err = a.db.Insert("time_slots").Rows(records...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to insert calendar", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit calendar", err)
	}
	return nil
}

func (a *AvailabilityAdapter) requireProvider(ctx context.Context, providerID string) error {
	query, args, err := a.db.Select(goqu.L("1")).
		From("providers").
		Where(goqu.Ex{"id": providerID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var one int
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrProviderNotFound.WithMessage("provider %s not found", providerID)
	}
	if err != nil {
		return apperrors.NewInternalError("failed to check provider", err)
	}
	return nil
}

func slotWhere(key entities.SlotKey) goqu.Ex {
	return goqu.Ex{
		"provider_id": key.ProviderID,
		"slot_date":   key.Date,
		"slot_id":     key.SlotID,
	}
}

func slotNotFound(key entities.SlotKey) error {
	return apperrors.ErrSlotNotFound.WithMessage("time slot %s on %s not found for provider %s", key.SlotID, key.Date, key.ProviderID)
}
