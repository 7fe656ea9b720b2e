package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/marketdata"
)

// PaperBroker simulates a brokerage account in memory for paper trading
// and tests. Limit orders fill immediately when marketable against the
// set market price; market orders fill with simulated slippage.
type PaperBroker struct {
	mu sync.RWMutex

	cash      float64
	positions map[string]*Position
	orders    map[string]*Order
	prices    map[string]float64

	marketOpen bool

	// FillLimitOrders controls whether marketable limit orders fill on
	// submission. Tests set it false to exercise polling and retries.
	fillLimitOrders bool

	baseSlippage float64
}

// NewPaperBroker creates a simulated account with the given cash balance
func NewPaperBroker(startingCash float64) *PaperBroker {
	log.Info().
		Float64("starting_cash", startingCash).
		Msg("Paper broker initialized (simulated account)")

	return &PaperBroker{
		cash:            startingCash,
		positions:       make(map[string]*Position),
		orders:          make(map[string]*Order),
		prices:          make(map[string]float64),
		marketOpen:      true,
		fillLimitOrders: true,
		baseSlippage:    0.0005,
	}
}

// SetMarketPrice sets the simulated price for a symbol
func (p *PaperBroker) SetMarketPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
	if pos, ok := p.positions[symbol]; ok {
		pos.CurrentPrice = price
		pos.MarketValue = pos.Qty * price
	}
}

// SetMarketOpen toggles the simulated market clock
func (p *PaperBroker) SetMarketOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marketOpen = open
}

// SetLimitFills controls immediate fills for marketable limit orders
func (p *PaperBroker) SetLimitFills(fill bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillLimitOrders = fill
}

// SetPosition seeds an existing holding
func (p *PaperBroker) SetPosition(symbol string, qty, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
	p.positions[symbol] = &Position{
		Symbol:        symbol,
		Qty:           qty,
		CurrentPrice:  price,
		AvgEntryPrice: price,
		MarketValue:   qty * price,
	}
}

func (p *PaperBroker) Account(ctx context.Context) (*Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	equity := 0.0
	for _, pos := range p.positions {
		equity += pos.Qty * p.prices[pos.Symbol]
	}

	return &Account{
		PortfolioValue: p.cash + equity,
		Cash:           p.cash,
		Equity:         equity,
		BuyingPower:    p.cash,
		Status:         "ACTIVE",
	}, nil
}

func (p *PaperBroker) Positions(ctx context.Context) (map[string]Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]Position, len(p.positions))
	for symbol, pos := range p.positions {
		out[symbol] = *pos
	}
	return out, nil
}

func (p *PaperBroker) IsMarketOpen(ctx context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.marketOpen, nil
}

func (p *PaperBroker) SubmitLimit(ctx context.Context, symbol string, qty float64, side Side, limitPrice float64) (*Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, err := p.newOrder(symbol, qty, side, OrderTypeLimit, limitPrice)
	if err != nil {
		return nil, err
	}

	price, ok := p.prices[symbol]
	marketable := ok && ((side == SideBuy && limitPrice >= price) ||
		(side == SideSell && limitPrice <= price))

	if p.fillLimitOrders && marketable {
		p.fill(order, price)
	}

	return copyOrder(order), nil
}

func (p *PaperBroker) SubmitMarket(ctx context.Context, symbol string, qty float64, side Side) (*Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, err := p.newOrder(symbol, qty, side, OrderTypeMarket, 0)
	if err != nil {
		return nil, err
	}

	price, ok := p.prices[symbol]
	if !ok {
		order.Status = OrderStatusRejected
		return copyOrder(order), nil
	}

	// When the market is closed the order queues like a real broker's
	if !p.marketOpen {
		return copyOrder(order), nil
	}

	if side == SideBuy {
		price *= 1 + p.baseSlippage
	} else {
		price *= 1 - p.baseSlippage
	}
	p.fill(order, price)

	return copyOrder(order), nil
}

func (p *PaperBroker) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	order, ok := p.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return copyOrder(order), nil
}

func (p *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	if order.Status.Terminal() {
		return fmt.Errorf("order %s already %s", orderID, order.Status)
	}
	order.Status = OrderStatusCanceled
	return nil
}

func (p *PaperBroker) LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	price, ok := p.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no price for %s", symbol)
	}
	return &marketdata.Quote{
		Bid:  price * (1 - p.baseSlippage),
		Ask:  price * (1 + p.baseSlippage),
		Last: price,
	}, nil
}

// FillOpenOrders fills every non-terminal order at current prices.
// Tests use it to simulate delayed settlement.
func (p *PaperBroker) FillOpenOrders() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, order := range p.orders {
		if order.Status.Terminal() {
			continue
		}
		if price, ok := p.prices[order.Symbol]; ok {
			p.fill(order, price)
		}
	}
}

// OpenOrders returns ids of all non-terminal orders
func (p *PaperBroker) OpenOrders() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ids []string
	for id, order := range p.orders {
		if !order.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *PaperBroker) newOrder(symbol string, qty float64, side Side, orderType OrderType, limitPrice float64) (*Order, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("invalid quantity %f for %s", qty, symbol)
	}
	if side == SideSell {
		pos, ok := p.positions[symbol]
		if !ok || pos.Qty < qty {
			return nil, fmt.Errorf("insufficient position to sell %f %s", qty, symbol)
		}
	}

	order := &Order{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       side,
		Type:       orderType,
		Qty:        qty,
		LimitPrice: limitPrice,
		Status:     OrderStatusAccepted,
		CreatedAt:  time.Now().UTC(),
	}
	p.orders[order.ID] = order
	return order, nil
}

// fill settles an order at the given price, adjusting cash and positions.
// Caller holds the lock.
func (p *PaperBroker) fill(order *Order, price float64) {
	value := order.Qty * price

	if order.Side == SideBuy {
		p.cash -= value
		pos, ok := p.positions[order.Symbol]
		if !ok {
			pos = &Position{Symbol: order.Symbol, AvgEntryPrice: price}
			p.positions[order.Symbol] = pos
		}
		pos.Qty += order.Qty
	} else {
		p.cash += value
		if pos, ok := p.positions[order.Symbol]; ok {
			pos.Qty -= order.Qty
			if pos.Qty <= 1e-9 {
				delete(p.positions, order.Symbol)
			}
		}
	}

	if pos, ok := p.positions[order.Symbol]; ok {
		pos.CurrentPrice = price
		pos.MarketValue = pos.Qty * price
	}

	now := time.Now().UTC()
	order.Status = OrderStatusFilled
	order.FilledQty = order.Qty
	order.AvgFillPrice = price
	order.FilledAt = &now

	log.Debug().
		Str("order_id", order.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("price", price).
		Msg("Paper order filled")
}

func copyOrder(order *Order) *Order {
	out := *order
	return &out
}
