// Package events publishes tick and signal events to NATS so external
// consumers (dashboards, recorders) can follow the engine without
// touching its hot path. Publishing is fire-and-forget.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/strategy"
)

// Subjects published by the engine
const (
	defaultPrefix  = "equityfunk."
	subjectTicks   = "ticks"
	subjectSignals = "signals." // + strategy name
)

// SignalEvent is the wire form of one strategy signal
type SignalEvent struct {
	ID        uuid.UUID          `json:"id"`
	Strategy  string             `json:"strategy"`
	Target    string             `json:"target"`
	Action    string             `json:"action"`
	Reason    string             `json:"reason"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// TickEvent is the wire form of one completed tick
type TickEvent struct {
	ID             uuid.UUID          `json:"id"`
	Success        bool               `json:"success"`
	Portfolio      map[string]float64 `json:"portfolio"`
	OrdersExecuted int                `json:"orders_executed"`
	AccountValue   float64            `json:"account_value"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Publisher publishes engine events over NATS. A nil Publisher is valid
// and drops every event, so the engine runs unchanged without a broker.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS with reconnect handlers. An empty URL disables
// publishing and returns a nil Publisher.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		log.Info().Msg("NATS URL not configured, event publishing disabled")
		return nil, nil
	}

	nc, err := nats.Connect(
		url,
		nats.Name("equityfunk-engine"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("nats_url", url).Msg("Event publisher connected")
	return &Publisher{nc: nc, prefix: defaultPrefix}, nil
}

// PublishSignal publishes one engine signal on signals.<strategy>
func (p *Publisher) PublishSignal(signal *strategy.Signal, weights map[string]float64) {
	if p == nil {
		return
	}

	event := SignalEvent{
		ID:        uuid.New(),
		Strategy:  signal.Strategy,
		Target:    signal.TargetName,
		Action:    string(signal.Action),
		Reason:    signal.Reason,
		Weights:   weights,
		Timestamp: signal.Timestamp,
	}
	p.publish(p.prefix+subjectSignals+signal.Strategy, event)
}

// PublishTick publishes the tick outcome
func (p *Publisher) PublishTick(event TickEvent) {
	if p == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	p.publish(p.prefix+subjectTicks, event)
}

func (p *Publisher) publish(subject string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Event marshal failed")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Event publish failed")
	}
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
	}
}
