package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/foxseedlab/attendance/internal/config"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

// RegisterDI provides repository.Store. When migrate is true the schema is
// applied before the store is handed out.
func RegisterDI(injector do.Injector, migrate bool) {
	do.Provide(injector, func(i do.Injector) (repository.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		store, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to run migration: %w", err)
			}
		}
		return store, nil
	})
}

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		s, err := OpenSQLite(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		return s, nil
	case config.StoreDriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*PostgresRepository, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MinConns = int32(cfg.DBMinConns)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)

	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresRepository(p), nil
}
