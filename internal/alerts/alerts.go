// Package alerts fans strategy-signal notifications out to the
// configured sinks: the structured log, the JSON-lines alert journal,
// and optionally Telegram.
package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/journal"
)

// Alert is one strategy-signal notification
type Alert struct {
	Timestamp time.Time
	Strategy  string
	Symbol    string
	Action    string
	Price     float64
	Reason    string
}

// Alerter defines the interface for alert sinks
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// Manager fans alerts out to every configured sink. A failing sink is
// logged and does not block the others.
type Manager struct {
	alerters []Alerter
}

func NewManager(alerters ...Alerter) *Manager {
	return &Manager{alerters: alerters}
}

func (m *Manager) Send(ctx context.Context, alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}

	var lastErr error
	for _, alerter := range m.alerters {
		if err := alerter.Send(ctx, alert); err != nil {
			log.Error().
				Err(err).
				Str("symbol", alert.Symbol).
				Str("action", alert.Action).
				Msg("Failed to send alert")
			lastErr = err
		}
	}
	return lastErr
}

// LogAlerter writes alerts to the structured log
type LogAlerter struct{}

func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

func (l *LogAlerter) Send(ctx context.Context, alert Alert) error {
	log.Info().
		Str("strategy", alert.Strategy).
		Str("symbol", alert.Symbol).
		Str("action", alert.Action).
		Float64("price", alert.Price).
		Str("reason", alert.Reason).
		Time("alert_time", alert.Timestamp).
		Msg("Signal alert")
	return nil
}

// FileAlerter appends alerts to the JSON-lines alert journal
type FileAlerter struct {
	journal *journal.AlertLog
}

func NewFileAlerter(path string) *FileAlerter {
	return &FileAlerter{journal: journal.NewAlertLog(path)}
}

func (f *FileAlerter) Send(ctx context.Context, alert Alert) error {
	return f.journal.Append(journal.Alert{
		Timestamp: alert.Timestamp,
		Symbol:    alert.Symbol,
		Action:    alert.Action,
		Price:     alert.Price,
		Reason:    alert.Reason,
	})
}
