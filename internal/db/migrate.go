package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		qty DOUBLE PRECISION NOT NULL,
		estimated_value DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'submitted',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol)`,
	`CREATE TABLE IF NOT EXISTS executions (
		id BIGSERIAL PRIMARY KEY,
		executed_at TIMESTAMPTZ NOT NULL,
		account_value DOUBLE PRECISION NOT NULL,
		target_portfolio JSONB NOT NULL,
		orders_executed INT NOT NULL,
		sells_planned INT NOT NULL,
		buys_planned INT NOT NULL,
		buys_skipped INT NOT NULL,
		settlement_timed_out BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at)`,
}

// Migrate applies the schema. Statements are idempotent so repeated
// startup runs are safe.
func (db *DB) Migrate(ctx context.Context) error {
	if db == nil {
		return nil
	}
	for i, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("Database schema applied")
	return nil
}
