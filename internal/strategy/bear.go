package strategy

import (
	"fmt"

	"github.com/ajitpratap0/equityfunk/internal/indicators"
)

// Bear sub-strategy thresholds
const (
	bearPSQOversold   = 35.0
	bearQQQWeakReturn = -10.0
	bearMinWeight     = 0.01
	bearVolWindow     = 14
)

// bearCombined runs the Bear-1 and Bear-2 sub-strategies and merges
// their picks. Agreement yields that single symbol; disagreement yields
// a 14-day inverse-volatility portfolio over the two picks, falling back
// to Bear-1 when history is too thin to weigh them.
func (e *NuclearEngine) bearCombined(ind IndicatorMap, md MarketData) *Signal {
	first, firstReason := bearOne(ind)
	second, secondReason := bearTwo(ind)

	if first == second {
		return e.signal(SymbolTarget(first), ActionBuy, firstReason)
	}

	e.logger.Debug().
		Str("bear_1", first).
		Str("bear_2", second).
		Msg("Bear sub-strategies disagree, weighting by inverse volatility")

	weights := bearWeights(first, second, md)
	if weights == nil {
		return e.signal(SymbolTarget(first), ActionBuy, firstReason)
	}

	reason := fmt.Sprintf("bear split: %s / %s", firstReason, secondReason)
	return e.signal(BearTarget{Weights: weights}, ActionBuy, reason)
}

// bearOne is the full bear sub-strategy including the weak-QQQ and IEF
// clauses.
func bearOne(ind IndicatorMap) (string, string) {
	if ind.RSI("PSQ", indicators.WindowRSI) < bearPSQOversold {
		return "SQQQ", "PSQ oversold, short conviction"
	}

	if qqq, ok := ind["QQQ"]; ok && qqq.CumReturn60 < bearQQQWeakReturn {
		if bondsStrongerThanPSQ(ind) {
			return "TQQQ", "bonds strong vs PSQ, contrarian"
		}
		return "PSQ", "QQQ weak, bonds not confirming"
	}

	if tqqq, ok := ind["TQQQ"]; ok {
		if tqqq.CurrentPrice > tqqq.MA20 {
			if bondsStrongerThanPSQ(ind) {
				return "TQQQ", "TQQQ above MA20, bonds confirm"
			}
			return "SQQQ", "TQQQ above MA20 without bond confirmation"
		}
		if ind.RSI("IEF", indicators.WindowRSI) > ind.RSI("PSQ", indicators.WindowRSILong) {
			return "SQQQ", "IEF strength over PSQ"
		}
		if bondsStrongerThanPSQ(ind) {
			return "QQQ", "bonds strong, unlevered long"
		}
		return "SQQQ", "TQQQ below MA20"
	}

	return "SQQQ", "no TQQQ data, default short"
}

// bearTwo is the simplified variant without the weak-QQQ and IEF clauses
func bearTwo(ind IndicatorMap) (string, string) {
	if ind.RSI("PSQ", indicators.WindowRSI) < bearPSQOversold {
		return "SQQQ", "PSQ oversold, short conviction"
	}

	if tqqq, ok := ind["TQQQ"]; ok {
		if tqqq.CurrentPrice > tqqq.MA20 {
			if bondsStrongerThanPSQ(ind) {
				return "TQQQ", "TQQQ above MA20, bonds confirm"
			}
			return "SQQQ", "TQQQ above MA20 without bond confirmation"
		}
		if bondsStrongerThanPSQ(ind) {
			return "QQQ", "bonds strong, unlevered long"
		}
		return "SQQQ", "TQQQ below MA20"
	}

	return "SQQQ", "no TQQQ data, default short"
}

func bondsStrongerThanPSQ(ind IndicatorMap) bool {
	return ind.RSI("TLT", indicators.WindowRSILong) > ind.RSI("PSQ", indicators.WindowRSILong)
}

// bearWeights computes 14-day inverse-volatility weights over the two
// distinct picks, dropping weights under 1%. Returns nil when either
// symbol has no history to weigh.
func bearWeights(first, second string, md MarketData) map[string]float64 {
	if md[first].Empty() || md[second].Empty() {
		return nil
	}

	inverseSum := 0.0
	inverse := make(map[string]float64, 2)
	for _, symbol := range []string{first, second} {
		vol := indicators.AnnualizedVolatility(md[symbol].Closes(), bearVolWindow)
		inverse[symbol] = 1.0 / vol
		inverseSum += inverse[symbol]
	}

	weights := make(map[string]float64, 2)
	for symbol, inv := range inverse {
		w := inv / inverseSum
		if w < bearMinWeight {
			continue
		}
		weights[symbol] = w
	}
	return weights
}
