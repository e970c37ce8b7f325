package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/api"
	"github.com/fluxbase-eu/fluxfilter/internal/config"
	"github.com/fluxbase-eu/fluxfilter/internal/database"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// openCatalog loads the entity schema from the configured source. The
// returned connection is nil unless the source is postgres; callers close it.
func openCatalog(ctx context.Context, cfg *config.Config) (api.Catalog, *database.Connection, error) {
	switch cfg.Schema.Source {
	case config.SchemaSourceFile:
		registry, err := schema.LoadFile(cfg.Schema.File)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("file", cfg.Schema.File).Int("entities", len(registry.EntityNames())).Msg("Schema loaded")
		return registry, nil, nil

	case config.SchemaSourcePostgres:
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		registry, err := db.Inspector().LoadRegistry(ctx, cfg.Schema.Schemas...)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to inspect database schema: %w", err)
		}
		log.Info().Strs("schemas", cfg.Schema.Schemas).Int("entities", len(registry.EntityNames())).Msg("Schema inspected")
		return registry, db, nil

	default:
		registry, err := schema.LoadSample()
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Int("entities", len(registry.EntityNames())).Msg("Embedded schema loaded")
		return registry, nil, nil
	}
}
