package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/indicators"
	"github.com/ajitpratap0/equityfunk/internal/marketdata"
)

// AllocationTolerance is the allowed deviation of Σα from 1.0
const AllocationTolerance = 0.01

// weightDeviationWarn triggers the consolidated Σw warning
const weightDeviationWarn = 0.05

// defaultCashSymbol receives full weight when no engine recommends
// anything.
const defaultCashSymbol = "BIL"

const prefetchConcurrency = 4

// Result is the outcome of one manager evaluation tick
type Result struct {
	Signals    []*Signal          `json:"signals"`
	Portfolio  map[string]float64 `json:"portfolio"`
	Indicators IndicatorMap       `json:"-"`
	MarketData MarketData         `json:"-"`
}

// Manager fetches history for the union universe, snapshots indicators,
// runs every engine, and merges their expanded recommendations under the
// fixed capital allocation split.
type Manager struct {
	provider    marketdata.Provider
	engines     []Engine
	allocations map[string]float64
	period      string
	interval    string
	logger      zerolog.Logger
}

// NewManager validates the allocation split and wires the engines.
// Construction fails when Σα deviates from 1.0 by more than 0.01 or an
// engine has no allocation entry.
func NewManager(cfg *config.Config, provider marketdata.Provider, engines ...Engine) (*Manager, error) {
	sum := 0.0
	for _, share := range cfg.Strategy.Allocations {
		sum += share
	}
	if math.Abs(sum-1.0) > AllocationTolerance {
		return nil, fmt.Errorf("strategy allocations sum to %.4f, expected 1.0", sum)
	}

	for _, engine := range engines {
		if _, ok := cfg.Strategy.Allocations[engine.Name()]; !ok {
			return nil, fmt.Errorf("no allocation configured for strategy %q", engine.Name())
		}
	}

	return &Manager{
		provider:    provider,
		engines:     engines,
		allocations: cfg.Strategy.Allocations,
		period:      cfg.Data.HistoryPeriod,
		interval:    cfg.Data.HistoryInterval,
		logger:      config.NewLogger("strategy-manager"),
	}, nil
}

// Run performs one evaluation tick
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	universe := m.universe()
	md := m.fetchHistory(ctx, universe)

	ind := make(IndicatorMap, len(md))
	for symbol, series := range md {
		if series.Empty() {
			continue
		}
		ind[symbol] = indicators.Snapshot(series.Closes(), nil)
	}

	m.logger.Info().
		Int("symbols", len(universe)).
		Int("with_data", len(ind)).
		Msg("Evaluating strategies")

	result := &Result{
		Portfolio:  make(map[string]float64),
		Indicators: ind,
		MarketData: md,
	}

	for _, engine := range m.engines {
		signal := m.evaluate(engine, ind, md)
		signal.Indicators = ind
		result.Signals = append(result.Signals, signal)

		if signal.Action != ActionBuy {
			continue
		}

		alpha := m.allocations[engine.Name()]
		for symbol, weight := range signal.Target.Expand(ind, md) {
			result.Portfolio[symbol] += weight * alpha
		}
	}

	if len(result.Portfolio) == 0 {
		result.Portfolio[defaultCashSymbol] = 1.0
		m.logger.Info().Msg("No buy signals, defaulting to cash")
	}

	total := 0.0
	for _, weight := range result.Portfolio {
		total += weight
	}
	if math.Abs(total-1.0) > weightDeviationWarn {
		m.logger.Warn().
			Float64("total_weight", total).
			Msg("Consolidated portfolio weights deviate from 1.0")
	}

	return result, nil
}

// evaluate runs one engine, converting both errors and panics into HOLD
// signals so one engine cannot take down the tick.
func (m *Manager) evaluate(engine Engine, ind IndicatorMap, md MarketData) (signal *Signal) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("strategy", engine.Name()).
				Interface("panic", r).
				Msg("Strategy engine panicked")
			signal = newSignal(engine.Name(), SymbolTarget("SPY"), ActionHold, fmt.Sprintf("engine panic: %v", r))
		}
	}()

	signal, err := engine.Evaluate(ind, md)
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("strategy", engine.Name()).
			Msg("Strategy evaluation failed")
		return newSignal(engine.Name(), SymbolTarget("SPY"), ActionHold, fmt.Sprintf("engine error: %v", err))
	}
	return signal
}

// universe returns the sorted union of every engine's symbol universe
func (m *Manager) universe() []string {
	seen := make(map[string]struct{})
	for _, engine := range m.engines {
		for _, symbol := range engine.Universe() {
			seen[symbol] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for symbol := range seen {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// fetchHistory loads close history for every symbol with bounded
// concurrency. Fetch failures surface as empty series and the affected
// symbol simply has no indicator snapshot.
func (m *Manager) fetchHistory(ctx context.Context, symbols []string) MarketData {
	md := make(MarketData, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)

	for _, symbol := range symbols {
		g.Go(func() error {
			series := m.provider.GetHistory(gctx, symbol, m.period, m.interval)
			mu.Lock()
			md[symbol] = series
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes
	_ = g.Wait()

	return md
}
