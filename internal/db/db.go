// Package db persists orders and tick executions to PostgreSQL.
// Persistence is optional: a nil *DB disables it and every method
// no-ops, so the engine runs unchanged without a database.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/config"
)

// Pool is the subset of pgxpool.Pool the store uses. Declared as an
// interface so pgxmock can stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// DB wraps the PostgreSQL connection pool
type DB struct {
	pool Pool
}

// New creates the connection pool. Returns nil when persistence is
// disabled in config.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil || !cfg.Enabled || cfg.URL == "" {
		log.Info().Msg("Database persistence disabled")
		return nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().Msg("Database connection pool created")
	return &DB{pool: pool}, nil
}

// NewWithPool wraps an existing pool (tests)
func NewWithPool(pool Pool) *DB {
	return &DB{pool: pool}
}

// Close closes the pool
func (db *DB) Close() {
	if db == nil || db.pool == nil {
		return
	}
	db.pool.Close()
}

// Health checks connectivity
func (db *DB) Health(ctx context.Context) error {
	if db == nil {
		return nil
	}
	return db.pool.Ping(ctx)
}
