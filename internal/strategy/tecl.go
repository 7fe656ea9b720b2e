package strategy

import (
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/indicators"
)

var teclUniverse = []string{"SPY", "TQQQ", "SPXL", "TECL", "XLK", "KMLM", "UVXY", "BIL", "BSV", "SQQQ"}

type regime int

const (
	regimeBull regime = iota
	regimeBear
)

// TECL thresholds; comparisons are strict
const (
	teclBullTQQQOverbought = 79.0
	teclBullSPYOverbought  = 80.0
	teclBearTQQQOversold   = 31.0
	teclBearSPXLOversold   = 29.0
	teclUVXYSpike          = 84.0
	teclUVXYElevated       = 74.0
	teclXLKOverbought      = 81.0
	teclXLKOversold        = 29.0
)

// TECLEngine evaluates the leveraged-tech strategy tree. The bull and
// bear paths share the KMLM switcher, which arbitrates between TECL,
// cash (BIL), and bond/short candidates on XLK vs KMLM momentum.
type TECLEngine struct {
	logger zerolog.Logger
}

func NewTECLEngine() *TECLEngine {
	return &TECLEngine{logger: config.NewStrategyLogger("tecl")}
}

func (e *TECLEngine) Name() string { return "tecl" }

func (e *TECLEngine) Universe() []string {
	out := make([]string, len(teclUniverse))
	copy(out, teclUniverse)
	return out
}

func (e *TECLEngine) Evaluate(ind IndicatorMap, md MarketData) (*Signal, error) {
	spy, ok := ind["SPY"]
	bull := ok && spy.CurrentPrice > spy.MA200

	if bull {
		return e.bullPath(ind), nil
	}
	return e.bearPath(ind), nil
}

func (e *TECLEngine) bullPath(ind IndicatorMap) *Signal {
	if ind.RSI("TQQQ", indicators.WindowRSI) > teclBullTQQQOverbought {
		return e.signal(WeightsTarget{"UVXY": 0.25, "BIL": 0.75}, "TQQQ overbought, volatility hedge")
	}
	if ind.RSI("SPY", indicators.WindowRSI) > teclBullSPYOverbought {
		return e.signal(WeightsTarget{"UVXY": 0.25, "BIL": 0.75}, "SPY overbought, volatility hedge")
	}
	return e.kmlmSwitcher(ind, regimeBull)
}

func (e *TECLEngine) bearPath(ind IndicatorMap) *Signal {
	if ind.RSI("TQQQ", indicators.WindowRSI) < teclBearTQQQOversold {
		return e.signal(SymbolTarget("TECL"), "TQQQ oversold, tech entry")
	}
	if ind.RSI("SPXL", indicators.WindowRSI) < teclBearSPXLOversold {
		return e.signal(SymbolTarget("SPXL"), "SPXL oversold")
	}

	uvxyRSI := ind.RSI("UVXY", indicators.WindowRSI)
	if uvxyRSI > teclUVXYSpike {
		return e.signal(WeightsTarget{"UVXY": 0.15, "BIL": 0.85}, "volatility spike")
	}
	if uvxyRSI > teclUVXYElevated {
		return e.signal(SymbolTarget("BIL"), "volatility elevated, cash")
	}

	return e.kmlmSwitcher(ind, regimeBear)
}

// kmlmSwitcher compares XLK momentum against the KMLM managed-futures
// benchmark. Both snapshots must exist; otherwise cash.
func (e *TECLEngine) kmlmSwitcher(ind IndicatorMap, r regime) *Signal {
	if !ind.Has("XLK") || !ind.Has("KMLM") {
		return e.signal(SymbolTarget("BIL"), "missing data")
	}

	xlkRSI := ind.RSI("XLK", indicators.WindowRSI)
	kmlmRSI := ind.RSI("KMLM", indicators.WindowRSI)

	if xlkRSI > kmlmRSI {
		if xlkRSI > teclXLKOverbought {
			return e.signal(SymbolTarget("BIL"), "XLK overbought, cash")
		}
		return e.signal(SymbolTarget("TECL"), "XLK momentum over KMLM")
	}

	if xlkRSI < teclXLKOversold {
		return e.signal(SymbolTarget("TECL"), "XLK washed out, contrarian entry")
	}
	if r == regimeBull {
		return e.signal(SymbolTarget("BIL"), "KMLM dominant in bull, cash")
	}
	return e.bondShortFilter(ind)
}

// bondShortFilter picks the stronger of SQQQ and BSV on RSI(9)
func (e *TECLEngine) bondShortFilter(ind IndicatorMap) *Signal {
	best := ""
	bestRSI := 0.0
	for _, symbol := range []string{"SQQQ", "BSV"} {
		if !ind.Has(symbol) {
			continue
		}
		r := ind.RSI(symbol, indicators.WindowRSIShort)
		if best == "" || r > bestRSI {
			best = symbol
			bestRSI = r
		}
	}
	if best == "" {
		return e.signal(SymbolTarget("BIL"), "no bond/short candidate data")
	}
	return e.signal(SymbolTarget(best), "bond/short filter on RSI(9)")
}

func (e *TECLEngine) signal(target Target, reason string) *Signal {
	e.logger.Debug().
		Str("target", target.Describe()).
		Str("reason", reason).
		Msg("TECL signal")
	return newSignal(e.Name(), target, ActionBuy, reason)
}
