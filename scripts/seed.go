package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/careslot/internal/adapters/database"
	"github.com/zatekoja/careslot/internal/adapters/search"
	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/careslot/pkg/config"
)

func main() {
	days := flag.Int("days", 0, "number of calendar days to seed (defaults to STORE_SEED_DAYS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *days <= 0 {
		*days = cfg.Store.SeedDays
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if err := database.EnsureSchema(ctx, pgClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE appointments, time_slots, providers CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("Failed to truncate tables")
		}
	}

	var index providers.ProviderSearchIndex
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, seeding without indexing")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema, seeding without indexing")
		} else {
			index = search.NewTypesenseAdapter(tsClient)
		}
	}

	catalog := services.NewCatalogService(
		database.NewProviderAdapter(pgClient),
		database.NewAvailabilityAdapter(pgClient),
		index,
	)

	if err := catalog.Provision(ctx, services.SeedCatalog(time.Now(), *days)); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed catalog")
	}
	log.Info().Int("days", *days).Msg("Seeding complete")
}
