// Package engine ties the strategy manager, executor, and reporting
// sinks together into the tick loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/alerts"
	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/db"
	"github.com/ajitpratap0/equityfunk/internal/events"
	"github.com/ajitpratap0/equityfunk/internal/executor"
	"github.com/ajitpratap0/equityfunk/internal/journal"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
	"github.com/ajitpratap0/equityfunk/internal/strategy"
)

// Backoff bounds for consecutive tick failures in continuous mode
const (
	backoffBase = 30 * time.Second
	backoffMax  = 5 * time.Minute
)

// Evaluator runs one strategy evaluation tick
type Evaluator interface {
	Run(ctx context.Context) (*strategy.Result, error)
}

// Rebalancer moves the account toward a target portfolio
type Rebalancer interface {
	Rebalance(ctx context.Context, targets map[string]float64) (*executor.Summary, error)
}

// TickResult is the outcome of one full tick
type TickResult struct {
	Success   bool
	Result    *strategy.Result
	Summary   *executor.Summary
	Duration  time.Duration
	AbortedAt string
}

// Deps holds the engine's collaborators. Broker, Evaluator, and
// Rebalancer are required; the reporting sinks may be nil.
type Deps struct {
	Config       *config.Config
	Broker       broker.Broker
	Evaluator    Evaluator
	Rebalancer   Rebalancer
	Alerts       *alerts.Manager
	ExecutionLog *journal.ExecutionLog
	Dashboard    *journal.DashboardWriter
	Publisher    *events.Publisher
	Store        *db.DB
}

// Engine runs the evaluate-then-rebalance cycle
type Engine struct {
	cfg        *config.Config
	broker     broker.Broker
	evaluator  Evaluator
	rebalancer Rebalancer

	alerts    *alerts.Manager
	execLog   *journal.ExecutionLog
	dashboard *journal.DashboardWriter
	publisher *events.Publisher
	store     *db.DB

	prevEquity float64
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(deps Deps) *Engine {
	return &Engine{
		cfg:        deps.Config,
		broker:     deps.Broker,
		evaluator:  deps.Evaluator,
		rebalancer: deps.Rebalancer,
		alerts:     deps.Alerts,
		execLog:    deps.ExecutionLog,
		dashboard:  deps.Dashboard,
		publisher:  deps.Publisher,
		store:      deps.Store,
		logger:     config.NewLogger("engine"),
		sleep:      sleepCtx,
	}
}

// RunTick performs one full cycle: account check, strategy evaluation,
// rebalance, then reporting. The account check runs first so a broker
// outage aborts before any strategy work.
func (e *Engine) RunTick(ctx context.Context) *TickResult {
	start := time.Now()
	tick := &TickResult{}

	account, err := e.broker.Account(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Account unreachable, aborting tick")
		tick.AbortedAt = "account"
		return e.finishTick(ctx, tick, start, nil)
	}

	result, err := e.evaluator.Run(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Strategy evaluation failed")
		tick.AbortedAt = "evaluate"
		return e.finishTick(ctx, tick, start, account)
	}
	tick.Result = result

	for _, signal := range result.Signals {
		metrics.RecordSignal(signal.Strategy, string(signal.Action))
		e.publisher.PublishSignal(signal, result.Portfolio)
		e.sendAlert(ctx, signal)
	}

	summary, err := e.rebalancer.Rebalance(ctx, result.Portfolio)
	if err != nil {
		e.logger.Error().Err(err).Msg("Rebalance failed")
		tick.AbortedAt = "rebalance"
		return e.finishTick(ctx, tick, start, account)
	}
	tick.Summary = summary
	tick.Success = true

	for _, rec := range summary.OrdersExecuted {
		metrics.RecordOrder(string(rec.Side))
	}
	metrics.UpdateTargets(result.Portfolio)

	e.journalExecution(ctx, summary)

	return e.finishTick(ctx, tick, start, account)
}

// RunContinuous ticks on the configured cadence until the context is
// cancelled. Consecutive failures back off exponentially and fail-stop
// at the configured limit.
func (e *Engine) RunContinuous(ctx context.Context) error {
	interval := time.Duration(e.cfg.App.IntervalMinutes) * time.Minute
	maxErrors := e.cfg.App.MaxErrors

	e.logger.Info().
		Dur("interval", interval).
		Int("max_errors", maxErrors).
		Msg("Starting continuous mode")

	consecutive := 0
	for {
		tick := e.RunTick(ctx)

		wait := interval
		if tick.Success {
			consecutive = 0
		} else {
			consecutive++
			if maxErrors > 0 && consecutive >= maxErrors {
				return fmt.Errorf("stopping after %d consecutive failed ticks", consecutive)
			}
			wait = failureBackoff(consecutive)
			e.logger.Warn().
				Int("consecutive_errors", consecutive).
				Dur("backoff", wait).
				Msg("Tick failed, backing off")
		}
		metrics.ConsecutiveErrors.Set(float64(consecutive))

		if err := e.sleep(ctx, wait); err != nil {
			e.logger.Info().Msg("Continuous mode stopped")
			return nil
		}
	}
}

// failureBackoff doubles per consecutive failure, capped at backoffMax
func failureBackoff(consecutive int) time.Duration {
	wait := backoffBase
	for i := 1; i < consecutive; i++ {
		wait *= 2
		if wait >= backoffMax {
			return backoffMax
		}
	}
	return wait
}

func (e *Engine) sendAlert(ctx context.Context, signal *strategy.Signal) {
	if e.alerts == nil || signal.Action == strategy.ActionHold {
		return
	}
	price := 0.0
	if set, ok := signal.Indicators[signal.TargetName]; ok {
		price = set.CurrentPrice
	}
	if err := e.alerts.Send(ctx, alerts.Alert{
		Timestamp: signal.Timestamp,
		Strategy:  signal.Strategy,
		Symbol:    signal.TargetName,
		Action:    string(signal.Action),
		Price:     price,
		Reason:    signal.Reason,
	}); err != nil {
		e.logger.Warn().Err(err).Msg("Alert delivery incomplete")
	}
}

func (e *Engine) journalExecution(ctx context.Context, summary *executor.Summary) {
	if e.execLog != nil {
		entry := journal.ExecutionEntry{
			Summary:      *summary,
			PaperTrading: e.cfg.Broker.PaperTrading,
		}
		if err := e.execLog.Append(entry); err != nil {
			e.logger.Warn().Err(err).Msg("Execution journal write failed")
		}
	}
	if err := e.store.InsertExecution(ctx, summary); err != nil {
		e.logger.Warn().Err(err).Msg("Execution persistence failed")
	}
}

// finishTick emits the dashboard, tick event, and tick metrics. It
// runs on every exit path, including aborted ticks.
func (e *Engine) finishTick(ctx context.Context, tick *TickResult, start time.Time, account *broker.Account) *TickResult {
	tick.Duration = time.Since(start)
	metrics.RecordTick(tick.Success, tick.Duration.Seconds())

	if account != nil {
		metrics.UpdateAccount(account.PortfolioValue, account.Cash)
	}

	e.writeDashboard(ctx, tick, account)

	event := events.TickEvent{Success: tick.Success}
	if account != nil {
		event.AccountValue = account.PortfolioValue
	}
	if tick.Result != nil {
		event.Portfolio = tick.Result.Portfolio
	}
	if tick.Summary != nil {
		event.OrdersExecuted = len(tick.Summary.OrdersExecuted)
	}
	e.publisher.PublishTick(event)

	e.logger.Info().
		Bool("success", tick.Success).
		Dur("duration", tick.Duration).
		Msg("Tick complete")
	return tick
}

func (e *Engine) writeDashboard(ctx context.Context, tick *TickResult, account *broker.Account) {
	if e.dashboard == nil {
		return
	}

	mode := "live"
	if e.cfg.Broker.PaperTrading {
		mode = "paper"
	}

	dash := &journal.Dashboard{
		Timestamp:     time.Now().UTC(),
		ExecutionMode: mode,
		Success:       tick.Success,
		Strategies:    make(map[string]journal.StrategyStatus),
	}

	if account != nil {
		dash.Portfolio = journal.PortfolioStatus{
			TotalValue: account.PortfolioValue,
			Cash:       account.Cash,
			Equity:     account.Equity,
		}
		if e.prevEquity > 0 {
			dash.Portfolio.DailyPL = account.Equity - e.prevEquity
			dash.Portfolio.DailyPLPercent = dash.Portfolio.DailyPL / e.prevEquity * 100
		}
		e.prevEquity = account.Equity

		if positions, err := e.broker.Positions(ctx); err == nil {
			for _, pos := range positions {
				dash.Positions = append(dash.Positions, pos)
			}
		}
	}

	if tick.Result != nil {
		dash.Targets = tick.Result.Portfolio
		for _, signal := range tick.Result.Signals {
			dash.Strategies[signal.Strategy] = journal.StrategyStatus{
				Signal:     string(signal.Action),
				Symbol:     signal.TargetName,
				Reason:     signal.Reason,
				Allocation: e.cfg.Strategy.Allocations[signal.Strategy],
			}
		}
	}
	if tick.Summary != nil {
		dash.RecentTrades = tick.Summary.OrdersExecuted
	}

	if err := e.dashboard.Write(dash); err != nil {
		e.logger.Warn().Err(err).Msg("Dashboard write failed")
	}
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
