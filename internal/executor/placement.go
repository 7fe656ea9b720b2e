package executor

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/config"
)

// Placer implements the order placement protocol: limit orders at the
// current price plus slippage, polled to fill, with the slippage doubled
// on each retry and a market order as the final fallback.
type Placer struct {
	broker broker.Broker

	maxRetries        int
	pollTimeout       time.Duration
	pollInterval      time.Duration
	slippageBPS       float64
	ignoreMarketHours bool

	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPlacer(b broker.Broker, cfg *config.ExecutionConfig) *Placer {
	return &Placer{
		broker:            b,
		maxRetries:        cfg.MaxRetries,
		pollTimeout:       cfg.PollTimeoutDuration(),
		pollInterval:      cfg.PollIntervalDuration(),
		slippageBPS:       cfg.SlippageBPS,
		ignoreMarketHours: cfg.IgnoreMarketHours,
		logger:            config.NewLogger("placer"),
		sleep:             sleepCtx,
	}
}

// PlaceOrder places an order for qty shares and returns the resulting
// order, or nil when nothing was submitted. Closed-market submissions
// queue a market order only when ignore_market_hours is set.
func (p *Placer) PlaceOrder(ctx context.Context, symbol string, qty float64, side broker.Side) *broker.Order {
	if qty <= 0 {
		return nil
	}

	open, err := p.broker.IsMarketOpen(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("Market clock unreadable, skipping order")
		return nil
	}

	if !open {
		if !p.ignoreMarketHours {
			p.logger.Info().
				Str("symbol", symbol).
				Str("side", string(side)).
				Msg("Market closed, order skipped")
			return nil
		}
		order, err := p.broker.SubmitMarket(ctx, symbol, qty, side)
		if err != nil {
			p.logger.Error().Err(err).Str("symbol", symbol).Msg("Queued market order failed")
			return nil
		}
		p.logger.Info().
			Str("symbol", symbol).
			Str("order_id", order.ID).
			Msg("Market closed, market order queued")
		return order
	}

	slippage := p.slippageBPS
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		price := p.currentPrice(ctx, symbol)
		if price <= 0 {
			p.logger.Warn().Str("symbol", symbol).Msg("No usable price, skipping order")
			return nil
		}

		limit := limitPrice(price, side, slippage)
		order, err := p.broker.SubmitLimit(ctx, symbol, qty, side, limit)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Msg("Limit order submission failed")
			slippage *= 2
			continue
		}

		p.logger.Info().
			Str("symbol", symbol).
			Str("side", string(side)).
			Float64("qty", qty).
			Float64("limit_price", limit).
			Float64("slippage_pct", slippage).
			Int("attempt", attempt+1).
			Str("order_id", order.ID).
			Msg("Limit order submitted")

		final, filled := p.pollOrder(ctx, order.ID)
		if filled {
			return final
		}

		// Unfilled past the timeout: cancel and widen the limit
		if final == nil || !final.Status.Terminal() {
			if err := p.broker.CancelOrder(ctx, order.ID); err != nil {
				p.logger.Warn().Err(err).Str("order_id", order.ID).Msg("Cancel failed")
			}
		}
		slippage *= 2
	}

	p.logger.Warn().
		Str("symbol", symbol).
		Str("side", string(side)).
		Msg("Limit attempts exhausted, falling back to market order")

	order, err := p.broker.SubmitMarket(ctx, symbol, qty, side)
	if err != nil {
		p.logger.Error().Err(err).Str("symbol", symbol).Msg("Market order fallback failed")
		return nil
	}
	return order
}

// pollOrder polls the order until it fills, terminates, or the poll
// timeout elapses. Returns the last observed state and whether it
// filled.
func (p *Placer) pollOrder(ctx context.Context, orderID string) (*broker.Order, bool) {
	deadline := time.Now().Add(p.pollTimeout)

	var last *broker.Order
	for time.Now().Before(deadline) {
		order, err := p.broker.GetOrder(ctx, orderID)
		if err == nil {
			last = order
			switch order.Status {
			case broker.OrderStatusFilled:
				return order, true
			case broker.OrderStatusCanceled, broker.OrderStatusRejected, broker.OrderStatusExpired:
				return order, false
			}
		} else {
			p.logger.Warn().Err(err).Str("order_id", orderID).Msg("Order status unreadable")
		}

		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return last, false
		}
	}

	return last, false
}

func (p *Placer) currentPrice(ctx context.Context, symbol string) float64 {
	quote, err := p.broker.LatestQuote(ctx, symbol)
	if err != nil || quote == nil {
		return 0
	}
	if mid := quote.Mid(); mid != nil {
		return *mid
	}
	return 0
}

// limitPrice widens the current price by slippage percent in the
// direction that helps the order fill, rounded to cents.
func limitPrice(price float64, side broker.Side, slippagePct float64) float64 {
	sign := 1.0
	if side == broker.SideSell {
		sign = -1.0
	}
	return math.Round(price*(1+sign*slippagePct/100)*100) / 100
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
