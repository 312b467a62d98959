package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/zatekoja/careslot/internal/infrastructure/clients/postgres"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the providers, time_slots and appointments tables if missing
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	if _, err := client.DB().ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
