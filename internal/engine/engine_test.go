package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/executor"
	"github.com/ajitpratap0/equityfunk/internal/journal"
	"github.com/ajitpratap0/equityfunk/internal/strategy"
)

type stubEvaluator struct {
	result *strategy.Result
	err    error
	calls  int
}

func (s *stubEvaluator) Run(ctx context.Context) (*strategy.Result, error) {
	s.calls++
	return s.result, s.err
}

type stubRebalancer struct {
	summary *executor.Summary
	err     error
	calls   int
}

func (s *stubRebalancer) Rebalance(ctx context.Context, targets map[string]float64) (*executor.Summary, error) {
	s.calls++
	return s.summary, s.err
}

type brokenBroker struct {
	*broker.PaperBroker
}

func (b *brokenBroker) Account(ctx context.Context) (*broker.Account, error) {
	return nil, errors.New("api down")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{IntervalMinutes: 1, MaxErrors: 3},
		Strategy: config.StrategyConfig{
			Allocations: map[string]float64{"nuclear": 0.5, "tecl": 0.5},
		},
		Broker: config.BrokerConfig{PaperTrading: true},
	}
}

func buyResult() *strategy.Result {
	return &strategy.Result{
		Signals: []*strategy.Signal{
			{
				Strategy:   "nuclear",
				TargetName: "UVXY",
				Action:     strategy.ActionBuy,
				Reason:     "SPY extremely overbought",
				Timestamp:  time.Now().UTC(),
			},
		},
		Portfolio: map[string]float64{"UVXY": 0.5, "BIL": 0.5},
	}
}

func TestRunTickSuccess(t *testing.T) {
	dir := t.TempDir()
	dashPath := filepath.Join(dir, "dashboard.json")

	evaluator := &stubEvaluator{result: buyResult()}
	rebalancer := &stubRebalancer{summary: &executor.Summary{
		Timestamp:    time.Now().UTC(),
		AccountValue: 10000,
		OrdersExecuted: []executor.OrderRecord{
			{Symbol: "UVXY", Side: broker.SideBuy, Qty: 10, OrderID: "ord-1"},
		},
	}}

	eng := New(Deps{
		Config:       testConfig(),
		Broker:       broker.NewPaperBroker(10000),
		Evaluator:    evaluator,
		Rebalancer:   rebalancer,
		ExecutionLog: journal.NewExecutionLog(filepath.Join(dir, "executions.jsonl")),
		Dashboard:    journal.NewDashboardWriter(dashPath),
	})

	tick := eng.RunTick(context.Background())

	require.True(t, tick.Success)
	assert.Empty(t, tick.AbortedAt)
	assert.Equal(t, 1, evaluator.calls)
	assert.Equal(t, 1, rebalancer.calls)
	require.NotNil(t, tick.Summary)

	data, err := os.ReadFile(dashPath)
	require.NoError(t, err)
	var dash journal.Dashboard
	require.NoError(t, json.Unmarshal(data, &dash))
	assert.True(t, dash.Success)
	assert.Equal(t, "paper", dash.ExecutionMode)
	assert.InDelta(t, 0.5, dash.Targets["UVXY"], 1e-9)
	assert.Equal(t, "BUY", dash.Strategies["nuclear"].Signal)
	assert.InDelta(t, 0.5, dash.Strategies["nuclear"].Allocation, 1e-9)
	assert.Len(t, dash.RecentTrades, 1)

	execData, err := os.ReadFile(filepath.Join(dir, "executions.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(execData), `"paper_trading":true`)
}

func TestRunTickAbortsWhenAccountUnreachable(t *testing.T) {
	evaluator := &stubEvaluator{result: buyResult()}
	rebalancer := &stubRebalancer{summary: &executor.Summary{}}

	eng := New(Deps{
		Config:     testConfig(),
		Broker:     &brokenBroker{broker.NewPaperBroker(10000)},
		Evaluator:  evaluator,
		Rebalancer: rebalancer,
	})

	tick := eng.RunTick(context.Background())

	assert.False(t, tick.Success)
	assert.Equal(t, "account", tick.AbortedAt)
	assert.Zero(t, evaluator.calls)
	assert.Zero(t, rebalancer.calls)
}

func TestRunTickAbortsOnEvaluationError(t *testing.T) {
	rebalancer := &stubRebalancer{summary: &executor.Summary{}}
	eng := New(Deps{
		Config:     testConfig(),
		Broker:     broker.NewPaperBroker(10000),
		Evaluator:  &stubEvaluator{err: errors.New("feed down")},
		Rebalancer: rebalancer,
	})

	tick := eng.RunTick(context.Background())

	assert.False(t, tick.Success)
	assert.Equal(t, "evaluate", tick.AbortedAt)
	assert.Zero(t, rebalancer.calls)
}

func TestRunTickRebalanceFailure(t *testing.T) {
	eng := New(Deps{
		Config:     testConfig(),
		Broker:     broker.NewPaperBroker(10000),
		Evaluator:  &stubEvaluator{result: buyResult()},
		Rebalancer: &stubRebalancer{err: errors.New("orders rejected")},
	})

	tick := eng.RunTick(context.Background())

	assert.False(t, tick.Success)
	assert.Equal(t, "rebalance", tick.AbortedAt)
	assert.NotNil(t, tick.Result)
	assert.Nil(t, tick.Summary)
}

func TestRunContinuousFailStop(t *testing.T) {
	cfg := testConfig()
	cfg.App.MaxErrors = 2

	eng := New(Deps{
		Config:     cfg,
		Broker:     &brokenBroker{broker.NewPaperBroker(10000)},
		Evaluator:  &stubEvaluator{result: buyResult()},
		Rebalancer: &stubRebalancer{summary: &executor.Summary{}},
	})
	slept := 0
	eng.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		return nil
	}

	err := eng.RunContinuous(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 consecutive failed ticks")
	// One backoff sleep after the first failure, then fail-stop
	assert.Equal(t, 1, slept)
}

func TestRunContinuousStopsOnCancel(t *testing.T) {
	eng := New(Deps{
		Config:     testConfig(),
		Broker:     broker.NewPaperBroker(10000),
		Evaluator:  &stubEvaluator{result: buyResult()},
		Rebalancer: &stubRebalancer{summary: &executor.Summary{}},
	})
	eng.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	require.NoError(t, eng.RunContinuous(context.Background()))
}

func TestFailureBackoff(t *testing.T) {
	tests := []struct {
		consecutive int
		want        time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 5 * time.Minute},
		{10, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureBackoff(tt.consecutive), "consecutive=%d", tt.consecutive)
	}
}
