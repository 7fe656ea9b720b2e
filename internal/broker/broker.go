// Package broker abstracts the brokerage API behind a small interface
// with an Alpaca implementation for live and paper endpoints, an
// in-memory simulator for tests, and a circuit-breaker decorator.
package broker

import (
	"context"

	"github.com/ajitpratap0/equityfunk/internal/marketdata"
)

// Broker is the gateway to the brokerage account. Both PaperBroker and
// AlpacaBroker implement this interface.
type Broker interface {
	// Account returns the current account snapshot
	Account(ctx context.Context) (*Account, error)

	// Positions returns all open positions keyed by symbol
	Positions(ctx context.Context) (map[string]Position, error)

	// IsMarketOpen reports whether the market clock is open
	IsMarketOpen(ctx context.Context) (bool, error)

	// SubmitLimit submits a DAY limit order and returns it
	SubmitLimit(ctx context.Context, symbol string, qty float64, side Side, limitPrice float64) (*Order, error)

	// SubmitMarket submits a DAY market order and returns it
	SubmitMarket(ctx context.Context, symbol string, qty float64, side Side) (*Order, error)

	// GetOrder retrieves the current state of an order
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// CancelOrder cancels an open order
	CancelOrder(ctx context.Context, orderID string) error

	// LatestQuote returns the most recent bid/ask for symbol
	LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
}
