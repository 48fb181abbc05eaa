package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/config"
	"github.com/deskforge/helpdesk/internal/repository"
	"github.com/deskforge/helpdesk/internal/repository/memory"
)

// Database owns the tenant store and, when a DSN is configured, the pgx pool
// behind it.
type Database struct {
	Store repository.Store
	pool  *pgxpool.Pool
}

// OpenDatabase returns a Postgres-backed tenant store with the schema applied
// when RunMigrations is set. Without a DSN it returns the in-memory store.
func OpenDatabase(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Database, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store, data is lost on restart")
		return &Database{Store: memory.New()}, nil
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pool, DefaultMigrationsDir, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("connected to postgres",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Bool("migrations", cfg.RunMigrations))
	return &Database{Store: repository.NewPostgresStore(pool), pool: pool}, nil
}

func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	return poolCfg, nil
}

// Durable reports whether tickets survive a restart.
func (d *Database) Durable() bool {
	return d != nil && d.pool != nil
}

// Close releases pool resources.
func (d *Database) Close() {
	if d.Durable() {
		d.pool.Close()
	}
}
