// Package journal persists the engine's tick artifacts: an append-only
// alert log, an append-only trade-execution log (both JSON lines), and a
// newest-wins dashboard snapshot.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/executor"
)

// Alert is one strategy-signal record
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
}

// lineLog appends JSON objects to a file, one per line
type lineLog struct {
	mu   sync.Mutex
	path string
}

func (l *lineLog) append(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", l.path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("write journal %s: %w", l.path, err)
	}
	return nil
}

// AlertLog is the append-only alert journal
type AlertLog struct {
	log lineLog
}

func NewAlertLog(path string) *AlertLog {
	return &AlertLog{log: lineLog{path: path}}
}

func (l *AlertLog) Append(alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	return l.log.append(alert)
}

// ExecutionEntry is one tick's execution summary as journaled
type ExecutionEntry struct {
	executor.Summary
	PaperTrading bool `json:"paper_trading"`
}

// ExecutionLog is the append-only trade-execution journal
type ExecutionLog struct {
	log lineLog
}

func NewExecutionLog(path string) *ExecutionLog {
	return &ExecutionLog{log: lineLog{path: path}}
}

func (l *ExecutionLog) Append(entry ExecutionEntry) error {
	return l.log.append(entry)
}

// StrategyStatus is one engine's latest outcome on the dashboard
type StrategyStatus struct {
	Signal     string  `json:"signal"`
	Symbol     string  `json:"symbol"`
	Reason     string  `json:"reason"`
	Allocation float64 `json:"allocation"`
}

// PortfolioStatus summarizes the account on the dashboard
type PortfolioStatus struct {
	TotalValue     float64 `json:"total_value"`
	Cash           float64 `json:"cash"`
	Equity         float64 `json:"equity"`
	DailyPL        float64 `json:"daily_pl"`
	DailyPLPercent float64 `json:"daily_pl_percent"`
}

// Dashboard is the per-tick snapshot, written whole; newest wins
type Dashboard struct {
	Timestamp     time.Time                 `json:"timestamp"`
	ExecutionMode string                    `json:"execution_mode"`
	Success       bool                      `json:"success"`
	Strategies    map[string]StrategyStatus `json:"strategies"`
	Portfolio     PortfolioStatus           `json:"portfolio"`
	Positions     []broker.Position         `json:"positions"`
	RecentTrades  []executor.OrderRecord    `json:"recent_trades"`
	Targets       map[string]float64        `json:"signals"`
}

// DashboardWriter atomically replaces the dashboard file each tick
type DashboardWriter struct {
	mu   sync.Mutex
	path string
}

func NewDashboardWriter(path string) *DashboardWriter {
	return &DashboardWriter{path: path}
}

// Write marshals the snapshot to a temp file and renames it into place
// so readers never observe a partial write.
func (w *DashboardWriter) Write(dashboard *Dashboard) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create dashboard dir: %w", err)
	}

	data, err := json.MarshalIndent(dashboard, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace dashboard: %w", err)
	}
	return nil
}
