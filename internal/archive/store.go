// Package archive persists finished sessions off the mutation path: a factory
// selects the session store and an asynchronous worker saves and exports
// sessions handed over by the state handler.
package archive

import (
	"context"
	"fmt"

	"strongholdcore/internal/config"
	"strongholdcore/internal/infra/persistence/memory"
	"strongholdcore/internal/infra/persistence/postgres"
	"strongholdcore/internal/infra/persistence/sqlite"
	"strongholdcore/pkg/domain"
)

// OpenStore builds the session store named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (domain.SessionStore, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite", "":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite session store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
