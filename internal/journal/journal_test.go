package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/executor"
)

func TestAlertLogAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "alerts.jsonl")
	log := NewAlertLog(path)

	require.NoError(t, log.Append(Alert{Symbol: "UVXY", Action: "BUY", Price: 12.5, Reason: "SPY extremely overbought"}))
	require.NoError(t, log.Append(Alert{Symbol: "BIL", Action: "HOLD", Reason: "no clear signal"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var alerts []Alert
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var a Alert
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &a))
		alerts = append(alerts, a)
	}

	require.Len(t, alerts, 2)
	assert.Equal(t, "UVXY", alerts[0].Symbol)
	assert.False(t, alerts[0].Timestamp.IsZero(), "timestamp filled when absent")
	assert.Equal(t, "no clear signal", alerts[1].Reason)
}

func TestExecutionLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.jsonl")
	log := NewExecutionLog(path)

	entry := ExecutionEntry{
		Summary: executor.Summary{
			Timestamp:       time.Now().UTC(),
			AccountValue:    1000,
			TargetPortfolio: map[string]float64{"SPY": 1.0},
			OrdersExecuted: []executor.OrderRecord{
				{Symbol: "SPY", Side: broker.SideBuy, Qty: 2, OrderID: "abc", EstimatedValue: 900},
			},
		},
		PaperTrading: true,
	}
	require.NoError(t, log.Append(entry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got ExecutionEntry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.PaperTrading)
	assert.InDelta(t, 1000, got.AccountValue, 1e-9)
	require.Len(t, got.OrdersExecuted, 1)
	assert.Equal(t, "abc", got.OrdersExecuted[0].OrderID)
}

func TestDashboardWriterReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	writer := NewDashboardWriter(path)

	first := &Dashboard{
		Timestamp:     time.Now().UTC(),
		ExecutionMode: "paper",
		Success:       true,
		Strategies: map[string]StrategyStatus{
			"nuclear": {Signal: "NUCLEAR_PORTFOLIO", Symbol: "SMR", Reason: "bull regime", Allocation: 0.5},
		},
		Portfolio: PortfolioStatus{TotalValue: 1000, Cash: 100, Equity: 900},
		Targets:   map[string]float64{"SMR": 0.5, "BIL": 0.5},
	}
	require.NoError(t, writer.Write(first))

	second := &Dashboard{ExecutionMode: "paper", Success: false}
	require.NoError(t, writer.Write(second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Dashboard
	require.NoError(t, json.Unmarshal(data, &got))
	assert.False(t, got.Success, "newest snapshot wins")

	// No temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
