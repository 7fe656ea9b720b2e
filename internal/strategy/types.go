// Package strategy contains the decision engines that turn per-symbol
// indicator snapshots into trade signals, and the manager that merges
// those signals into a single consolidated target portfolio.
package strategy

import (
	"time"

	"github.com/ajitpratap0/equityfunk/internal/indicators"
	"github.com/ajitpratap0/equityfunk/internal/marketdata"
)

// Action is the recommendation attached to a signal
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// MarketData is the close-history bundle the engines and named portfolio
// targets evaluate against, keyed by symbol.
type MarketData map[string]marketdata.BarSeries

// IndicatorMap holds one indicator snapshot per symbol. Symbols without
// history are simply absent; engines treat absent symbols with the same
// neutral fallbacks the snapshot itself uses.
type IndicatorMap map[string]indicators.Set

// RSI returns the RSI for symbol over the given window, or the neutral
// 50.0 fallback when the symbol has no snapshot.
func (m IndicatorMap) RSI(symbol string, window int) float64 {
	set, ok := m[symbol]
	if !ok {
		return indicators.FallbackRSI
	}
	switch window {
	case indicators.WindowRSIShort:
		return set.RSI9
	case indicators.WindowRSILong:
		return set.RSI20
	default:
		return set.RSI10
	}
}

// Has reports whether the symbol has an indicator snapshot
func (m IndicatorMap) Has(symbol string) bool {
	_, ok := m[symbol]
	return ok
}

// Target is what a signal recommends holding. It is a closed set of
// variants: a single symbol, an explicit weight map, or one of the named
// portfolios that expand against current indicators and market data.
type Target interface {
	// Expand resolves the target into a weight map over symbols
	Expand(ind IndicatorMap, md MarketData) map[string]float64

	// Describe returns a short human-readable label for logs and journals
	Describe() string
}

// SymbolTarget recommends a single symbol at full weight
type SymbolTarget string

func (t SymbolTarget) Expand(IndicatorMap, MarketData) map[string]float64 {
	return map[string]float64{string(t): 1.0}
}

func (t SymbolTarget) Describe() string { return string(t) }

// WeightsTarget recommends an explicit weight map
type WeightsTarget map[string]float64

func (t WeightsTarget) Expand(IndicatorMap, MarketData) map[string]float64 {
	out := make(map[string]float64, len(t))
	for symbol, weight := range t {
		out[symbol] = weight
	}
	return out
}

func (t WeightsTarget) Describe() string { return "WEIGHTS" }

// UVXYBTALTarget is the fixed 75/25 volatility hedge portfolio
type UVXYBTALTarget struct{}

func (UVXYBTALTarget) Expand(IndicatorMap, MarketData) map[string]float64 {
	return map[string]float64{"UVXY": 0.75, "BTAL": 0.25}
}

func (UVXYBTALTarget) Describe() string { return "UVXY_BTAL_PORTFOLIO" }

// NuclearTarget expands into the top-N inverse-volatility nuclear
// portfolio at expansion time, using whatever indicators the manager
// currently holds.
type NuclearTarget struct {
	Builder *NuclearPortfolioBuilder
}

func (t NuclearTarget) Expand(ind IndicatorMap, md MarketData) map[string]float64 {
	weights := t.Builder.Build(ind, md)
	out := make(map[string]float64, len(weights))
	for symbol, entry := range weights {
		out[symbol] = entry.Weight
	}
	return out
}

func (NuclearTarget) Describe() string { return "NUCLEAR_PORTFOLIO" }

// BearTarget carries the weight map produced by the bear sub-strategy
// combination. When the combination could not produce weights the
// documented 60/40 SQQQ/TQQQ fallback applies.
type BearTarget struct {
	Weights map[string]float64
}

func (t BearTarget) Expand(IndicatorMap, MarketData) map[string]float64 {
	if len(t.Weights) == 0 {
		return map[string]float64{"SQQQ": 0.6, "TQQQ": 0.4}
	}
	out := make(map[string]float64, len(t.Weights))
	for symbol, weight := range t.Weights {
		out[symbol] = weight
	}
	return out
}

func (BearTarget) Describe() string { return "BEAR_PORTFOLIO" }

// Signal is one engine's recommendation for the current tick
type Signal struct {
	Strategy   string       `json:"strategy"`
	Target     Target       `json:"-"`
	TargetName string       `json:"target"`
	Action     Action       `json:"action"`
	Reason     string       `json:"reason"`
	Timestamp  time.Time    `json:"timestamp"`
	Indicators IndicatorMap `json:"-"`
}

func newSignal(strategy string, target Target, action Action, reason string) *Signal {
	return &Signal{
		Strategy:   strategy,
		Target:     target,
		TargetName: target.Describe(),
		Action:     action,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	}
}

// Engine is a strategy decision tree evaluated once per tick
type Engine interface {
	Name() string
	Universe() []string
	Evaluate(ind IndicatorMap, md MarketData) (*Signal, error)
}
