// Package metrics declares the engine's Prometheus collectors and the
// HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics
var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equityfunk_ticks_total",
		Help: "Evaluation ticks by outcome",
	}, []string{"outcome"})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "equityfunk_tick_duration_seconds",
		Help:    "End-to-end tick duration",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equityfunk_signals_total",
		Help: "Strategy signals by strategy and action",
	}, []string{"strategy", "action"})

	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equityfunk_orders_total",
		Help: "Orders submitted by side",
	}, []string{"side"})

	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equityfunk_portfolio_value_usd",
		Help: "Account portfolio value in USD",
	})

	CashBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equityfunk_cash_usd",
		Help: "Account cash balance in USD",
	})

	TargetWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "equityfunk_target_weight",
		Help: "Consolidated target weight by symbol",
	}, []string{"symbol"})

	ConsecutiveErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equityfunk_consecutive_errors",
		Help: "Consecutive failed ticks in continuous mode",
	})

	VaultRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equityfunk_vault_requests_total",
		Help: "Vault secret reads by result",
	}, []string{"result"})

	VaultCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equityfunk_vault_cache_total",
		Help: "Vault secret cache lookups by outcome",
	}, []string{"outcome"})
)

// RecordTick records one tick outcome
func RecordTick(success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	TicksTotal.WithLabelValues(outcome).Inc()
	TickDuration.Observe(durationSeconds)
}

// RecordSignal records one strategy signal
func RecordSignal(strategyName, action string) {
	SignalsTotal.WithLabelValues(strategyName, action).Inc()
}

// RecordOrder records one submitted order
func RecordOrder(side string) {
	OrdersTotal.WithLabelValues(side).Inc()
}

// UpdateAccount updates the account gauges
func UpdateAccount(portfolioValue, cash float64) {
	PortfolioValue.Set(portfolioValue)
	CashBalance.Set(cash)
}

// RecordVaultRequest records one Vault secret read
func RecordVaultRequest(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	VaultRequestsTotal.WithLabelValues(result).Inc()
}

// RecordVaultCache records one cache lookup outcome
func RecordVaultCache(hit bool) {
	outcome := "hit"
	if !hit {
		outcome = "miss"
	}
	VaultCacheTotal.WithLabelValues(outcome).Inc()
}

// UpdateTargets replaces the per-symbol target weight gauges
func UpdateTargets(targets map[string]float64) {
	TargetWeight.Reset()
	for symbol, weight := range targets {
		TargetWeight.WithLabelValues(symbol).Set(weight)
	}
}
