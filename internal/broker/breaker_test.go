package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBroker errors on every call
type failingBroker struct{ PaperBroker }

func (f *failingBroker) Account(ctx context.Context) (*Account, error) {
	return nil, errors.New("api unavailable")
}

func TestBreakerBrokerPassesThrough(t *testing.T) {
	paper := NewPaperBroker(5000)
	paper.SetMarketPrice("SPY", 450)

	wrapped := NewBreakerBroker(paper)
	ctx := context.Background()

	account, err := wrapped.Account(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5000, account.Cash, 1e-9)

	open, err := wrapped.IsMarketOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	order, err := wrapped.SubmitLimit(ctx, "SPY", 1, SideBuy, 451)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, order.Status)

	got, err := wrapped.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestBreakerBrokerTripsAfterRepeatedFailures(t *testing.T) {
	wrapped := NewBreakerBroker(&failingBroker{})
	ctx := context.Background()

	// Drive enough failures to trip the breaker
	for i := 0; i < brokerMinRequests; i++ {
		_, err := wrapped.Account(ctx)
		require.Error(t, err)
	}

	_, err := wrapped.Account(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
