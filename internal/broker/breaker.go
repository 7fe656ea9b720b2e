package broker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/equityfunk/internal/marketdata"
)

// Circuit breaker thresholds for broker API calls
const (
	brokerMinRequests     = 5
	brokerFailureRatio    = 0.6
	brokerOpenTimeout     = 30 * time.Second
	brokerHalfOpenMaxReqs = 3
	brokerCountInterval   = 10 * time.Second
)

type breakerMetrics struct {
	state    prometheus.Gauge
	requests *prometheus.CounterVec
}

var (
	globalBreakerMetrics *breakerMetrics
	breakerMetricsOnce   sync.Once
)

func initBreakerMetrics() *breakerMetrics {
	breakerMetricsOnce.Do(func() {
		globalBreakerMetrics = &breakerMetrics{
			state: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "equityfunk_broker_breaker_state",
				Help: "Broker circuit breaker state (0=closed, 1=open, 2=half_open)",
			}),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "equityfunk_broker_requests_total",
					Help: "Broker API requests through the circuit breaker",
				},
				[]string{"operation", "result"},
			),
		}
	})
	return globalBreakerMetrics
}

// BreakerBroker wraps a Broker with a circuit breaker so a flapping
// brokerage API fails fast instead of stalling every tick on timeouts.
type BreakerBroker struct {
	inner   Broker
	breaker *gobreaker.CircuitBreaker
	metrics *breakerMetrics
}

// NewBreakerBroker wraps the given broker
func NewBreakerBroker(inner Broker) *BreakerBroker {
	metrics := initBreakerMetrics()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "broker",
		MaxRequests: brokerHalfOpenMaxReqs,
		Interval:    brokerCountInterval,
		Timeout:     brokerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= brokerMinRequests && failureRatio >= brokerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Broker circuit breaker state changed")
			metrics.state.Set(breakerStateValue(to))
		},
	})

	return &BreakerBroker{inner: inner, breaker: breaker, metrics: metrics}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func (b *BreakerBroker) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if err != nil {
		b.metrics.requests.WithLabelValues(operation, "failure").Inc()
		return nil, err
	}
	b.metrics.requests.WithLabelValues(operation, "success").Inc()
	return result, nil
}

func (b *BreakerBroker) Account(ctx context.Context) (*Account, error) {
	result, err := b.execute("account", func() (interface{}, error) {
		return b.inner.Account(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Account), nil
}

func (b *BreakerBroker) Positions(ctx context.Context) (map[string]Position, error) {
	result, err := b.execute("positions", func() (interface{}, error) {
		return b.inner.Positions(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]Position), nil
}

func (b *BreakerBroker) IsMarketOpen(ctx context.Context) (bool, error) {
	result, err := b.execute("clock", func() (interface{}, error) {
		return b.inner.IsMarketOpen(ctx)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (b *BreakerBroker) SubmitLimit(ctx context.Context, symbol string, qty float64, side Side, limitPrice float64) (*Order, error) {
	result, err := b.execute("submit_limit", func() (interface{}, error) {
		return b.inner.SubmitLimit(ctx, symbol, qty, side, limitPrice)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Order), nil
}

func (b *BreakerBroker) SubmitMarket(ctx context.Context, symbol string, qty float64, side Side) (*Order, error) {
	result, err := b.execute("submit_market", func() (interface{}, error) {
		return b.inner.SubmitMarket(ctx, symbol, qty, side)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Order), nil
}

func (b *BreakerBroker) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	result, err := b.execute("get_order", func() (interface{}, error) {
		return b.inner.GetOrder(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Order), nil
}

func (b *BreakerBroker) CancelOrder(ctx context.Context, orderID string) error {
	_, err := b.execute("cancel_order", func() (interface{}, error) {
		return nil, b.inner.CancelOrder(ctx, orderID)
	})
	return err
}

func (b *BreakerBroker) LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	result, err := b.execute("latest_quote", func() (interface{}, error) {
		return b.inner.LatestQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return result.(*marketdata.Quote), nil
}
