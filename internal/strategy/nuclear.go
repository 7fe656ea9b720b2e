package strategy

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/indicators"
)

// Nuclear universe groups
var (
	nuclearMarketSymbols     = []string{"SPY", "IOO", "TQQQ", "VTV", "XLF", "VOX"}
	nuclearVolatilitySymbols = []string{"UVXY", "BTAL"}
	nuclearTechSymbols       = []string{"QQQ", "SQQQ", "PSQ", "UPRO"}
	nuclearBondSymbols       = []string{"TLT", "IEF"}
	nuclearCoreSymbols       = []string{"SMR", "BWXT", "LEU", "EXC", "NLR", "OKLO"}
)

// Overbought/oversold thresholds for the nuclear decision tree
const (
	rsiOverbought        = 79.0
	rsiExtremeOverbought = 81.0
	rsiOversold          = 30.0
)

// NuclearEngine evaluates the nuclear strategy decision tree. In calm
// bull regimes it holds a top-N basket of nuclear-energy names weighted
// by inverse volatility; overbought conditions rotate into volatility
// hedges and bear regimes hand off to the combined bear sub-strategies.
type NuclearEngine struct {
	builder *NuclearPortfolioBuilder
	logger  zerolog.Logger
}

// NewNuclearEngine constructs the engine from strategy config
func NewNuclearEngine(cfg *config.StrategyConfig) *NuclearEngine {
	return &NuclearEngine{
		builder: NewNuclearPortfolioBuilder(cfg.TopNNuclear, cfg.NuclearWeighting),
		logger:  config.NewStrategyLogger("nuclear"),
	}
}

func (e *NuclearEngine) Name() string { return "nuclear" }

// Universe returns every symbol the engine needs history for
func (e *NuclearEngine) Universe() []string {
	var out []string
	for _, group := range [][]string{
		nuclearMarketSymbols,
		nuclearVolatilitySymbols,
		nuclearTechSymbols,
		nuclearBondSymbols,
		nuclearCoreSymbols,
	} {
		out = append(out, group...)
	}
	return out
}

// Evaluate walks the decision tree top-down; the first matching branch
// wins. All threshold comparisons are strict.
func (e *NuclearEngine) Evaluate(ind IndicatorMap, md MarketData) (*Signal, error) {
	spyRSI := ind.RSI("SPY", indicators.WindowRSI)

	if spyRSI > rsiOverbought {
		if spyRSI > rsiExtremeOverbought {
			return e.signal(SymbolTarget("UVXY"), ActionBuy, "SPY extremely overbought"), nil
		}
		for _, s := range []string{"IOO", "TQQQ", "VTV", "XLF"} {
			if ind.RSI(s, indicators.WindowRSI) > rsiExtremeOverbought {
				return e.signal(SymbolTarget("UVXY"), ActionBuy, fmt.Sprintf("%s extremely overbought", s)), nil
			}
		}
		return e.signal(UVXYBTALTarget{}, ActionBuy, "SPY moderately overbought; 75/25 hedge"), nil
	}

	if ind.RSI("VOX", indicators.WindowRSI) > rsiOverbought {
		if ind.RSI("XLF", indicators.WindowRSI) > rsiExtremeOverbought {
			return e.signal(SymbolTarget("UVXY"), ActionBuy, "XLF extremely overbought"), nil
		}
		return e.signal(UVXYBTALTarget{}, ActionBuy, "VOX moderately overbought; 75/25 hedge"), nil
	}

	if ind.RSI("TQQQ", indicators.WindowRSI) < rsiOversold {
		return e.signal(SymbolTarget("TQQQ"), ActionBuy, "TQQQ oversold"), nil
	}

	if spyRSI < rsiOversold {
		return e.signal(SymbolTarget("UPRO"), ActionBuy, "SPY oversold; leveraged dip buy"), nil
	}

	if spy, ok := ind["SPY"]; ok && spy.CurrentPrice > spy.MA200 {
		if len(e.builder.Build(ind, md)) == 0 {
			return e.signal(SymbolTarget("SMR"), ActionBuy, "bull regime; nuclear portfolio empty"), nil
		}
		return e.signal(NuclearTarget{Builder: e.builder}, ActionBuy, "bull regime; nuclear portfolio"), nil
	}

	if bear := e.bearCombined(ind, md); bear != nil {
		return bear, nil
	}

	return e.signal(SymbolTarget("SPY"), ActionHold, "no clear signal"), nil
}

func (e *NuclearEngine) signal(target Target, action Action, reason string) *Signal {
	e.logger.Debug().
		Str("target", target.Describe()).
		Str("action", string(action)).
		Str("reason", reason).
		Msg("Nuclear signal")
	return newSignal(e.Name(), target, action, reason)
}

// PortfolioEntry is one constituent of the nuclear portfolio
type PortfolioEntry struct {
	Weight      float64 `json:"weight"`
	Performance float64 `json:"performance"`
}

// NuclearPortfolioBuilder ranks the nuclear universe by 90-day mean
// return and weights the top N either by inverse 90-day annualized
// volatility or equally.
type NuclearPortfolioBuilder struct {
	topN      int
	weighting string
}

func NewNuclearPortfolioBuilder(topN int, weighting string) *NuclearPortfolioBuilder {
	if topN < 1 {
		topN = 3
	}
	if weighting == "" {
		weighting = config.WeightingInverseVol
	}
	return &NuclearPortfolioBuilder{topN: topN, weighting: weighting}
}

// Build returns the weighted top-N portfolio. Symbols without indicator
// snapshots pad the selection at performance 0 when fewer than N rank.
func (b *NuclearPortfolioBuilder) Build(ind IndicatorMap, md MarketData) map[string]PortfolioEntry {
	type ranked struct {
		symbol      string
		performance float64
	}

	var candidates []ranked
	var missing []string
	for _, symbol := range nuclearCoreSymbols {
		set, ok := ind[symbol]
		if !ok {
			missing = append(missing, symbol)
			continue
		}
		candidates = append(candidates, ranked{symbol: symbol, performance: set.MAReturn90})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].performance > candidates[j].performance
	})

	if len(candidates) > b.topN {
		candidates = candidates[:b.topN]
	}
	for _, symbol := range missing {
		if len(candidates) >= b.topN {
			break
		}
		candidates = append(candidates, ranked{symbol: symbol, performance: 0})
	}

	if len(candidates) == 0 {
		return nil
	}

	selected := make([]string, len(candidates))
	for i, c := range candidates {
		selected[i] = c.symbol
	}

	weights := b.weigh(selected, md, indicators.WindowMAReturn)

	out := make(map[string]PortfolioEntry, len(candidates))
	for _, c := range candidates {
		out[c.symbol] = PortfolioEntry{Weight: weights[c.symbol], Performance: c.performance}
	}
	return out
}

// weigh computes per-symbol weights over the selection. Inverse
// volatility uses stddev of the last `window` daily returns annualized
// by √252, with the 0.3 default and 0.01 floor applied upstream.
func (b *NuclearPortfolioBuilder) weigh(symbols []string, md MarketData, window int) map[string]float64 {
	weights := make(map[string]float64, len(symbols))

	if b.weighting == config.WeightingEqual {
		equal := 1.0 / float64(len(symbols))
		for _, symbol := range symbols {
			weights[symbol] = equal
		}
		return weights
	}

	inverseSum := 0.0
	inverse := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		vol := indicators.AnnualizedVolatility(md[symbol].Closes(), window)
		inverse[symbol] = 1.0 / vol
		inverseSum += inverse[symbol]
	}

	for _, symbol := range symbols {
		weights[symbol] = inverse[symbol] / inverseSum
	}
	return weights
}
