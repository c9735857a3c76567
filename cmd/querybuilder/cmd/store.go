package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/querybuilder/internal/core/config"
	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/solatis/querybuilder/internal/store"
)

// openStore opens the configured database and refuses to continue while
// migrations are pending. The caller closes the returned handle.
func openStore(ctx context.Context, cfg *config.Config) (*sqlx.DB, *store.Store, error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, st := range statuses {
		if !st.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'querybuilder migrate up' first", st.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, store.New(queries), nil
}
