package broker

import "time"

// Side represents buy or sell
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType represents market or limit order
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus represents the current state of an order
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// Terminal reports whether the status is final and the order will not
// fill further.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// Account is the broker account snapshot used for rebalance planning
type Account struct {
	PortfolioValue float64 `json:"portfolio_value"`
	Cash           float64 `json:"cash"`
	Equity         float64 `json:"equity"`
	BuyingPower    float64 `json:"buying_power"`
	DayTradeCount  int     `json:"day_trade_count"`
	Status         string  `json:"status"`
}

// Position is one open holding
type Position struct {
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty"`
	MarketValue   float64 `json:"market_value"`
	CurrentPrice  float64 `json:"current_price"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
}

// Order holds the broker order id plus its last-known state. Pollers act
// on this value, not the raw id.
type Order struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Type         OrderType   `json:"type"`
	Qty          float64     `json:"qty"`
	LimitPrice   float64     `json:"limit_price,omitempty"`
	FilledQty    float64     `json:"filled_qty"`
	AvgFillPrice float64     `json:"avg_fill_price,omitempty"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	FilledAt     *time.Time  `json:"filled_at,omitempty"`
}
