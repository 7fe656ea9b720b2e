package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ajitpratap0/equityfunk/internal/executor"
)

// InsertOrder records one submitted order. No-op on a nil DB.
func (db *DB) InsertOrder(ctx context.Context, rec executor.OrderRecord) error {
	if db == nil {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO orders (order_id, symbol, side, qty, estimated_value)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.OrderID, rec.Symbol, string(rec.Side), rec.Qty, rec.EstimatedValue)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", rec.OrderID, err)
	}
	return nil
}

// UpdateOrderStatus sets the latest broker status for an order
func (db *DB) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	if db == nil {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE order_id = $1`,
		orderID, status)
	if err != nil {
		return fmt.Errorf("update order %s status: %w", orderID, err)
	}
	return nil
}

// InsertExecution records one tick summary and its orders
func (db *DB) InsertExecution(ctx context.Context, summary *executor.Summary) error {
	if db == nil || summary == nil {
		return nil
	}

	targets, err := json.Marshal(summary.TargetPortfolio)
	if err != nil {
		return fmt.Errorf("marshal target portfolio: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO executions
		 (executed_at, account_value, target_portfolio, orders_executed,
		  sells_planned, buys_planned, buys_skipped, settlement_timed_out)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		summary.Timestamp, summary.AccountValue, targets, len(summary.OrdersExecuted),
		summary.SellsPlanned, summary.BuysPlanned, summary.BuysSkipped,
		summary.SettlementTimedOut)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	for _, rec := range summary.OrdersExecuted {
		if err := db.InsertOrder(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
