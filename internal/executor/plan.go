// Package executor turns a consolidated target portfolio into broker
// orders: plan deltas against current positions, sell first, wait for
// settlement, then buy with the cash that actually arrived.
package executor

import (
	"math"
	"sort"

	"github.com/ajitpratap0/equityfunk/internal/broker"
)

// DefaultMinTradeValue is the USD tolerance below which a rebalance
// delta is ignored.
const DefaultMinTradeValue = 1.0

// Trade is one planned order
type Trade struct {
	Symbol         string      `json:"symbol"`
	Side           broker.Side `json:"side"`
	Qty            float64     `json:"qty"`
	Price          float64     `json:"price"`
	EstimatedValue float64     `json:"estimated_value"`
}

// Plan is the per-tick rebalance plan: sells before buys, with the cash
// projection used to size the buys.
type Plan struct {
	Sells            []Trade `json:"sells"`
	Buys             []Trade `json:"buys"`
	ExpectedProceeds float64 `json:"expected_proceeds"`
	ProjectedCash    float64 `json:"projected_cash"`
}

// Planner computes rebalance plans. It is deterministic: the same
// positions, prices, and targets always produce the same plan.
type Planner struct {
	minTradeValue float64
}

func NewPlanner(minTradeValue float64) *Planner {
	if minTradeValue <= 0 {
		minTradeValue = DefaultMinTradeValue
	}
	return &Planner{minTradeValue: minTradeValue}
}

// BuildPlan computes the sell and buy lists for moving the account to
// the target weights. Buys are sized by value, scaled down
// proportionally when they exceed cash plus expected sell proceeds, then
// converted to floor-rounded share quantities.
func (p *Planner) BuildPlan(targets map[string]float64, positions map[string]broker.Position, account *broker.Account, prices map[string]float64) *Plan {
	plan := &Plan{}

	type buyIntent struct {
		symbol string
		value  float64
		price  float64
	}
	var buyIntents []buyIntent

	for _, symbol := range planSymbols(targets, positions) {
		price := prices[symbol]
		if price <= 0 {
			if pos, ok := positions[symbol]; ok {
				price = pos.CurrentPrice
			}
		}

		targetValue := account.PortfolioValue * targets[symbol]
		currentValue := 0.0
		if pos, ok := positions[symbol]; ok {
			currentValue = pos.MarketValue
		}

		delta := currentValue - targetValue

		switch {
		case delta > p.minTradeValue:
			if price <= 0 {
				continue
			}
			qty := floorShares(math.Min(delta/price, positions[symbol].Qty))
			if qty <= 0 {
				continue
			}
			plan.Sells = append(plan.Sells, Trade{
				Symbol:         symbol,
				Side:           broker.SideSell,
				Qty:            qty,
				Price:          price,
				EstimatedValue: qty * price,
			})

		case delta < -p.minTradeValue:
			if price <= 0 {
				continue
			}
			buyIntents = append(buyIntents, buyIntent{symbol: symbol, value: -delta, price: price})
		}
	}

	for _, sell := range plan.Sells {
		plan.ExpectedProceeds += sell.EstimatedValue
	}
	plan.ProjectedCash = account.Cash + plan.ExpectedProceeds

	totalBuyValue := 0.0
	for _, intent := range buyIntents {
		totalBuyValue += intent.value
	}

	scale := 1.0
	if totalBuyValue > plan.ProjectedCash && totalBuyValue > 0 {
		scale = plan.ProjectedCash / totalBuyValue
	}

	for _, intent := range buyIntents {
		qty := floorShares(intent.value * scale / intent.price)
		if qty <= 0 {
			continue
		}
		plan.Buys = append(plan.Buys, Trade{
			Symbol:         intent.symbol,
			Side:           broker.SideBuy,
			Qty:            qty,
			Price:          intent.price,
			EstimatedValue: qty * intent.price,
		})
	}

	return plan
}

// planSymbols returns the sorted union of held and targeted symbols
func planSymbols(targets map[string]float64, positions map[string]broker.Position) []string {
	seen := make(map[string]struct{}, len(targets)+len(positions))
	for symbol := range targets {
		seen[symbol] = struct{}{}
	}
	for symbol := range positions {
		seen[symbol] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for symbol := range seen {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// floorShares rounds a share quantity down to 6 decimals so planned
// trades never exceed their computed targets.
func floorShares(qty float64) float64 {
	return math.Floor(qty*1e6) / 1e6
}
