package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/config"
)

// OrderRecord is one executed order in the tick summary
type OrderRecord struct {
	Symbol         string      `json:"symbol"`
	Side           broker.Side `json:"side"`
	Qty            float64     `json:"qty"`
	OrderID        string      `json:"order_id"`
	EstimatedValue float64     `json:"estimated_value"`
}

// Summary is the per-tick execution report
type Summary struct {
	Timestamp          time.Time          `json:"timestamp"`
	AccountValue       float64            `json:"account_value"`
	TargetPortfolio    map[string]float64 `json:"target_portfolio"`
	OrdersExecuted     []OrderRecord      `json:"orders_executed"`
	SellsPlanned       int                `json:"sells_planned"`
	BuysPlanned        int                `json:"buys_planned"`
	BuysSkipped        int                `json:"buys_skipped"`
	SettlementTimedOut bool               `json:"settlement_timed_out,omitempty"`
}

// Executor drives the four rebalance phases: plan, sell, wait for
// settlement, buy.
type Executor struct {
	broker  broker.Broker
	planner *Planner
	placer  *Placer

	ignoreMarketHours bool
	buySafetyMargin   float64
	maxWait           time.Duration
	pollInterval      time.Duration

	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(b broker.Broker, cfg *config.ExecutionConfig) *Executor {
	return &Executor{
		broker:            b,
		planner:           NewPlanner(cfg.MinTradeValue),
		placer:            NewPlacer(b, cfg),
		ignoreMarketHours: cfg.IgnoreMarketHours,
		buySafetyMargin:   cfg.BuySafetyMargin,
		maxWait:           cfg.MaxWaitDuration(),
		pollInterval:      cfg.PollIntervalDuration(),
		logger:            config.NewLogger("executor"),
		sleep:             sleepCtx,
	}
}

// Rebalance moves the account toward the target weights. It returns an
// error only when the account or positions cannot be read; individual
// order failures are logged and skipped.
func (e *Executor) Rebalance(ctx context.Context, targets map[string]float64) (*Summary, error) {
	account, err := e.broker.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("account fetch: %w", err)
	}

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions fetch: %w", err)
	}

	prices := e.fetchPrices(ctx, targets, positions)
	plan := e.planner.BuildPlan(targets, positions, account, prices)

	e.logger.Info().
		Int("sells", len(plan.Sells)).
		Int("buys", len(plan.Buys)).
		Float64("portfolio_value", account.PortfolioValue).
		Float64("cash", account.Cash).
		Float64("expected_proceeds", plan.ExpectedProceeds).
		Msg("Rebalance plan built")

	summary := &Summary{
		Timestamp:       time.Now().UTC(),
		AccountValue:    account.PortfolioValue,
		TargetPortfolio: targets,
		SellsPlanned:    len(plan.Sells),
		BuysPlanned:     len(plan.Buys),
	}

	marketOpen, err := e.broker.IsMarketOpen(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Market clock unreadable, assuming closed")
		marketOpen = false
	}

	// Phase 2: sells
	var sellOrderIDs []string
	for _, sell := range plan.Sells {
		order := e.placer.PlaceOrder(ctx, sell.Symbol, sell.Qty, broker.SideSell)
		if order == nil {
			continue
		}
		sellOrderIDs = append(sellOrderIDs, order.ID)
		summary.OrdersExecuted = append(summary.OrdersExecuted, OrderRecord{
			Symbol:         sell.Symbol,
			Side:           broker.SideSell,
			Qty:            sell.Qty,
			OrderID:        order.ID,
			EstimatedValue: sell.EstimatedValue,
		})
	}

	// Phase 3: settlement
	availableCash := account.Cash
	if !marketOpen && e.ignoreMarketHours {
		// The broker will not move cash for queued orders; size buys
		// from estimated proceeds minus the safety margin
		availableCash = account.Cash + plan.ExpectedProceeds*(1-e.buySafetyMargin)
		e.logger.Info().
			Float64("available_cash", availableCash).
			Msg("Market closed, using estimated proceeds for buys")
	} else if len(sellOrderIDs) > 0 {
		settled := e.WaitForSettlement(ctx, sellOrderIDs)
		summary.SettlementTimedOut = !settled

		refreshed, err := e.broker.Account(ctx)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Account refresh failed, keeping pre-sell cash")
		} else {
			availableCash = refreshed.Cash
		}
	}

	// Phase 4: buys
	for _, buy := range plan.Buys {
		if buy.EstimatedValue > availableCash {
			summary.BuysSkipped++
			e.logger.Warn().
				Str("symbol", buy.Symbol).
				Float64("estimated_cost", buy.EstimatedValue).
				Float64("available_cash", availableCash).
				Msg("Insufficient cash, buy skipped")
			continue
		}

		order := e.placer.PlaceOrder(ctx, buy.Symbol, buy.Qty, broker.SideBuy)
		if order == nil {
			continue
		}
		availableCash -= buy.EstimatedValue
		summary.OrdersExecuted = append(summary.OrdersExecuted, OrderRecord{
			Symbol:         buy.Symbol,
			Side:           broker.SideBuy,
			Qty:            buy.Qty,
			OrderID:        order.ID,
			EstimatedValue: buy.EstimatedValue,
		})
	}

	e.logger.Info().
		Int("orders_executed", len(summary.OrdersExecuted)).
		Int("buys_skipped", summary.BuysSkipped).
		Msg("Rebalance complete")

	return summary, nil
}

// WaitForSettlement polls the given orders until every one reaches a
// terminal status or the wall-clock deadline passes. Orders whose status
// cannot be read are treated as settled. Returns false on timeout.
func (e *Executor) WaitForSettlement(ctx context.Context, orderIDs []string) bool {
	deadline := time.Now().Add(e.maxWait)

	pending := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		pending[id] = struct{}{}
	}

	for len(pending) > 0 {
		for id := range pending {
			order, err := e.broker.GetOrder(ctx, id)
			if err != nil {
				e.logger.Warn().Err(err).Str("order_id", id).Msg("Order status unreadable, treating as settled")
				delete(pending, id)
				continue
			}
			if order.Status.Terminal() {
				delete(pending, id)
			}
		}

		if len(pending) == 0 {
			return true
		}
		if time.Now().After(deadline) {
			e.logger.Warn().
				Int("unsettled", len(pending)).
				Dur("max_wait", e.maxWait).
				Msg("Settlement wait timed out, proceeding with buys")
			return false
		}
		if err := e.sleep(ctx, e.pollInterval); err != nil {
			return false
		}
	}

	return true
}

// fetchPrices collects current prices for every symbol the plan may
// touch, preferring live quotes and falling back to position marks.
func (e *Executor) fetchPrices(ctx context.Context, targets map[string]float64, positions map[string]broker.Position) map[string]float64 {
	prices := make(map[string]float64)
	for _, symbol := range planSymbols(targets, positions) {
		quote, err := e.broker.LatestQuote(ctx, symbol)
		if err == nil && quote != nil {
			if mid := quote.Mid(); mid != nil {
				prices[symbol] = *mid
				continue
			}
		}
		if pos, ok := positions[symbol]; ok {
			prices[symbol] = pos.CurrentPrice
		}
	}
	return prices
}
