package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider counts fetches and serves a canned series
type stubProvider struct {
	series BarSeries
	price  *float64
	calls  int
}

func (s *stubProvider) GetHistory(ctx context.Context, symbol, period, interval string) BarSeries {
	s.calls++
	return s.series
}

func (s *stubProvider) GetCurrentPrice(ctx context.Context, symbol string) *float64 {
	return s.price
}

func sampleSeries(n int) BarSeries {
	series := make(BarSeries, n)
	ts := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range series {
		price := 100.0 + float64(i)
		series[i] = Bar{
			Timestamp: ts.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000,
		}
	}
	return series
}

func TestCachedProviderHitAndMiss(t *testing.T) {
	stub := &stubProvider{series: sampleSeries(5)}
	cache := NewCachedProvider(stub, time.Minute)

	ctx := context.Background()

	first := cache.GetHistory(ctx, "SPY", "1y", "1d")
	require.Len(t, first, 5)
	assert.Equal(t, 1, stub.calls)

	// Second call within TTL is served from cache
	second := cache.GetHistory(ctx, "SPY", "1y", "1d")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls)

	// Different key misses
	cache.GetHistory(ctx, "QQQ", "1y", "1d")
	assert.Equal(t, 2, stub.calls)
	cache.GetHistory(ctx, "SPY", "6mo", "1d")
	assert.Equal(t, 3, stub.calls)
}

func TestCachedProviderTTLExpiry(t *testing.T) {
	stub := &stubProvider{series: sampleSeries(3)}
	cache := NewCachedProvider(stub, time.Minute)

	current := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	ctx := context.Background()

	cache.GetHistory(ctx, "SPY", "1y", "1d")
	require.Equal(t, 1, stub.calls)

	// Still fresh just under the TTL
	current = current.Add(59 * time.Second)
	cache.GetHistory(ctx, "SPY", "1y", "1d")
	assert.Equal(t, 1, stub.calls)

	// Expired at the TTL boundary
	current = current.Add(2 * time.Second)
	cache.GetHistory(ctx, "SPY", "1y", "1d")
	assert.Equal(t, 2, stub.calls)
}

func TestCachedProviderDoesNotCacheEmptyResults(t *testing.T) {
	stub := &stubProvider{series: BarSeries{}}
	cache := NewCachedProvider(stub, time.Minute)

	ctx := context.Background()

	assert.True(t, cache.GetHistory(ctx, "SPY", "1y", "1d").Empty())
	assert.True(t, cache.GetHistory(ctx, "SPY", "1y", "1d").Empty())

	// Both calls went upstream; a failed fetch must not poison the cache
	assert.Equal(t, 2, stub.calls)
}

func TestQuoteMid(t *testing.T) {
	tests := []struct {
		name  string
		quote Quote
		want  *float64
	}{
		{"both sides positive", Quote{Bid: 100, Ask: 102}, floatPtr(101)},
		{"only ask positive", Quote{Bid: 0, Ask: 102}, floatPtr(102)},
		{"only bid positive", Quote{Bid: 100, Ask: 0}, floatPtr(100)},
		{"neither positive", Quote{}, nil},
		{"negative bid ignored", Quote{Bid: -1, Ask: 50}, floatPtr(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.quote.Mid()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		period  string
		want    time.Time
		wantErr bool
	}{
		{"1y", now.AddDate(-1, 0, 0), false},
		{"6mo", now.AddDate(0, -6, 0), false},
		{"2w", now.AddDate(0, 0, -14), false},
		{"5d", now.AddDate(0, 0, -5), false},
		{"1d", now.AddDate(0, 0, -1), false},
		{"garbage", time.Time{}, true},
		{"0y", time.Time{}, true},
		{"1x", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := periodStart(tt.period, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func floatPtr(f float64) *float64 { return &f }
