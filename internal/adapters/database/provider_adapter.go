package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

var providerColumns = []interface{}{
	"id", "name", "specialty", "address", "phone", "email",
	"rating", "latitude", "longitude", "place_id", "created_at", "updated_at",
}

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.Select(providerColumns...).
		From("providers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider, err := scanProvider(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrProviderNotFound.WithMessage("provider %s not found", id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return provider, nil
}

// GetByIDs retrieves the known providers among ids, in the order of ids
func (a *ProviderAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	if len(ids) == 0 {
		return []*entities.Provider{}, nil
	}

	found, err := a.list(ctx, a.db.Select(providerColumns...).From("providers").Where(goqu.Ex{"id": ids}))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entities.Provider, len(found))
	for _, provider := range found {
		byID[provider.ID] = provider
	}
	out := make([]*entities.Provider, 0, len(ids))
	for _, id := range ids {
		if provider, ok := byID[id]; ok {
			out = append(out, provider.Profile())
		}
	}
	return out, nil
}

// List retrieves providers ordered by ID
func (a *ProviderAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []*entities.Provider{}, nil
	}

	ds := a.db.Select(providerColumns...).From("providers")
	if filter.Specialty != "" {
		ds = ds.Where(goqu.Ex{"specialty": string(filter.Specialty)})
	}
	if filter.IDs != nil {
		ds = ds.Where(goqu.Ex{"id": filter.IDs})
	}
	return a.list(ctx, ds.Order(goqu.I("id").Asc()))
}

// Upsert creates or replaces a provider profile, keeping the original created_at
func (a *ProviderAdapter) Upsert(ctx context.Context, provider *entities.Provider) error {
	profile := provider.Profile()
	if err := profile.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	record := goqu.Record{
		"id":         profile.ID,
		"name":       profile.Name,
		"specialty":  string(profile.Specialty),
		"address":    profile.Address,
		"phone":      profile.Phone,
		"email":      profile.Email,
		"rating":     profile.Rating,
		"latitude":   profile.Location.Lat,
		"longitude":  profile.Location.Lng,
		"place_id":   profile.PlaceID,
		"created_at": profile.CreatedAt,
		"updated_at": now,
	}

	query, args, err := a.db.Insert("providers").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":       goqu.L("EXCLUDED.name"),
			"specialty":  goqu.L("EXCLUDED.specialty"),
			"address":    goqu.L("EXCLUDED.address"),
			"phone":      goqu.L("EXCLUDED.phone"),
			"email":      goqu.L("EXCLUDED.email"),
			"rating":     goqu.L("EXCLUDED.rating"),
			"latitude":   goqu.L("EXCLUDED.latitude"),
			"longitude":  goqu.L("EXCLUDED.longitude"),
			"place_id":   goqu.L("EXCLUDED.place_id"),
			"updated_at": goqu.L("EXCLUDED.updated_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert provider", err)
	}
	return nil
}

func (a *ProviderAdapter) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Provider, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	defer rows.Close()

	providers := []*entities.Provider{}
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate providers", err)
	}
	return providers, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*entities.Provider, error) {
	provider := &entities.Provider{}
	var specialty string
	err := row.Scan(
		&provider.ID,
		&provider.Name,
		&specialty,
		&provider.Address,
		&provider.Phone,
		&provider.Email,
		&provider.Rating,
		&provider.Location.Lat,
		&provider.Location.Lng,
		&provider.PlaceID,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	provider.Specialty = entities.Specialty(specialty)
	return provider, nil
}
