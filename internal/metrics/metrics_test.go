package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTick(t *testing.T) {
	before := testutil.ToFloat64(TicksTotal.WithLabelValues("success"))
	RecordTick(true, 0.5)
	assert.InDelta(t, before+1, testutil.ToFloat64(TicksTotal.WithLabelValues("success")), 1e-9)

	beforeFail := testutil.ToFloat64(TicksTotal.WithLabelValues("failure"))
	RecordTick(false, 1.2)
	assert.InDelta(t, beforeFail+1, testutil.ToFloat64(TicksTotal.WithLabelValues("failure")), 1e-9)
}

func TestRecordSignalAndOrder(t *testing.T) {
	before := testutil.ToFloat64(SignalsTotal.WithLabelValues("nuclear", "BUY"))
	RecordSignal("nuclear", "BUY")
	assert.InDelta(t, before+1, testutil.ToFloat64(SignalsTotal.WithLabelValues("nuclear", "BUY")), 1e-9)

	beforeOrders := testutil.ToFloat64(OrdersTotal.WithLabelValues("sell"))
	RecordOrder("sell")
	assert.InDelta(t, beforeOrders+1, testutil.ToFloat64(OrdersTotal.WithLabelValues("sell")), 1e-9)
}

func TestUpdateAccount(t *testing.T) {
	UpdateAccount(12345.67, 890.12)
	assert.InDelta(t, 12345.67, testutil.ToFloat64(PortfolioValue), 1e-9)
	assert.InDelta(t, 890.12, testutil.ToFloat64(CashBalance), 1e-9)
}

func TestUpdateTargetsResets(t *testing.T) {
	UpdateTargets(map[string]float64{"SPY": 0.6, "BIL": 0.4})
	assert.InDelta(t, 0.6, testutil.ToFloat64(TargetWeight.WithLabelValues("SPY")), 1e-9)

	UpdateTargets(map[string]float64{"UVXY": 1.0})
	require.InDelta(t, 1.0, testutil.ToFloat64(TargetWeight.WithLabelValues("UVXY")), 1e-9)
	// Old symbols are gone after the reset
	assert.Zero(t, testutil.CollectAndCount(TargetWeight)-1)
}
