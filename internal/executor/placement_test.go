package executor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/broker"
)

func testPlacer(b broker.Broker, ignoreMarketHours bool) *Placer {
	return &Placer{
		broker:            b,
		maxRetries:        3,
		pollTimeout:       50 * time.Millisecond,
		pollInterval:      5 * time.Millisecond,
		slippageBPS:       0.3,
		ignoreMarketHours: ignoreMarketHours,
		logger:            zerolog.Nop(),
		sleep:             sleepCtx,
	}
}

func TestPlaceOrderRejectsZeroQty(t *testing.T) {
	paper := broker.NewPaperBroker(1000)
	placer := testPlacer(paper, false)

	assert.Nil(t, placer.PlaceOrder(context.Background(), "SPY", 0, broker.SideBuy))
	assert.Nil(t, placer.PlaceOrder(context.Background(), "SPY", -1, broker.SideBuy))
}

func TestPlaceOrderMarketClosed(t *testing.T) {
	t.Run("without override returns nil", func(t *testing.T) {
		paper := broker.NewPaperBroker(1000)
		paper.SetMarketPrice("SPY", 100)
		paper.SetMarketOpen(false)

		placer := testPlacer(paper, false)
		assert.Nil(t, placer.PlaceOrder(context.Background(), "SPY", 1, broker.SideBuy))
		assert.Empty(t, paper.OpenOrders())
	})

	t.Run("with override queues a market order", func(t *testing.T) {
		paper := broker.NewPaperBroker(1000)
		paper.SetMarketPrice("SPY", 100)
		paper.SetMarketOpen(false)

		placer := testPlacer(paper, true)
		order := placer.PlaceOrder(context.Background(), "SPY", 1, broker.SideBuy)

		require.NotNil(t, order)
		assert.Equal(t, broker.OrderTypeMarket, order.Type)
		assert.Equal(t, broker.OrderStatusAccepted, order.Status)
	})
}

func TestPlaceOrderFillsMarketableLimit(t *testing.T) {
	paper := broker.NewPaperBroker(1000)
	paper.SetMarketPrice("SPY", 100)

	placer := testPlacer(paper, false)
	order := placer.PlaceOrder(context.Background(), "SPY", 2, broker.SideBuy)

	require.NotNil(t, order)
	assert.Equal(t, broker.OrderStatusFilled, order.Status)
	assert.Equal(t, broker.OrderTypeLimit, order.Type)

	// The returned id exists on the broker
	got, err := paper.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestPlaceOrderFallsBackToMarket(t *testing.T) {
	paper := broker.NewPaperBroker(1000)
	paper.SetMarketPrice("SPY", 100)
	paper.SetLimitFills(false)

	placer := testPlacer(paper, false)
	order := placer.PlaceOrder(context.Background(), "SPY", 1, broker.SideBuy)

	require.NotNil(t, order)
	assert.Equal(t, broker.OrderTypeMarket, order.Type)
	assert.Equal(t, broker.OrderStatusFilled, order.Status)

	// Every resting limit attempt was cancelled along the way
	assert.Empty(t, paper.OpenOrders())
}

func TestPlaceOrderNoPrice(t *testing.T) {
	paper := broker.NewPaperBroker(1000)

	placer := testPlacer(paper, false)
	assert.Nil(t, placer.PlaceOrder(context.Background(), "ZZZ", 1, broker.SideBuy))
}

func TestLimitPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		side     broker.Side
		slippage float64
		want     float64
	}{
		{"buy pays up", 100, broker.SideBuy, 0.3, 100.30},
		{"sell gives way", 100, broker.SideSell, 0.3, 99.70},
		{"doubled slippage widens", 100, broker.SideBuy, 0.6, 100.60},
		{"rounds to cents", 33.333, broker.SideBuy, 0.3, 33.43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, limitPrice(tt.price, tt.side, tt.slippage), 1e-9)
		})
	}
}
