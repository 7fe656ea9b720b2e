package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendingPrices(n int, start, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return prices
}

func TestRSI(t *testing.T) {
	t.Run("output matches input length with NaN warmup", func(t *testing.T) {
		prices := trendingPrices(30, 100, 0.5)
		out := RSI(prices, 10)

		require.Len(t, out, len(prices))
		assert.True(t, math.IsNaN(out[0]), "warmup region should be NaN")
		last := out[len(out)-1]
		assert.False(t, math.IsNaN(last))
		assert.GreaterOrEqual(t, last, 0.0)
		assert.LessOrEqual(t, last, 100.0)
	})

	t.Run("uptrend yields high RSI", func(t *testing.T) {
		prices := trendingPrices(40, 100, 2)
		last := SafeLastRSI(RSI(prices, 10))
		assert.Greater(t, last, 70.0)
	})

	t.Run("downtrend yields low RSI", func(t *testing.T) {
		prices := trendingPrices(40, 200, -2)
		last := SafeLastRSI(RSI(prices, 10))
		assert.Less(t, last, 30.0)
	})

	t.Run("short input is all NaN", func(t *testing.T) {
		out := RSI([]float64{100, 101}, 10)
		require.Len(t, out, 2)
		for _, v := range out {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, RSI(nil, 10))
	})
}

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	out := SMA(prices, 3)

	require.Len(t, out, len(prices))
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 5.0, out[len(out)-1], 1e-9) // mean(4,5,6)
}

func TestMAReturn(t *testing.T) {
	// Constant 1% step-ups: every single-period return is 1%
	prices := make([]float64, 20)
	prices[0] = 100
	for i := 1; i < len(prices); i++ {
		prices[i] = prices[i-1] * 1.01
	}

	out := MAReturn(prices, 5)
	require.Len(t, out, len(prices))
	assert.True(t, math.IsNaN(out[4]))
	assert.InDelta(t, 1.0, out[len(out)-1], 1e-6)
}

func TestCumReturn(t *testing.T) {
	prices := []float64{100, 101, 102, 103, 104, 110}
	out := CumReturn(prices, 5)

	require.Len(t, out, len(prices))
	for i := 0; i < 5; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d should be warmup", i)
	}
	assert.InDelta(t, 10.0, out[5], 1e-9) // 110/100 - 1
}

func TestSafeLast(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		fallback float64
		want     float64
	}{
		{"last value finite", []float64{1, 2, 3}, 50, 3},
		{"trailing NaN skipped", []float64{1, 2, math.NaN()}, 50, 2},
		{"all NaN uses fallback", []float64{math.NaN(), math.NaN()}, 50, 50},
		{"empty uses fallback", nil, 50, 50},
		{"infinity skipped", []float64{7, math.Inf(1)}, 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeLast(tt.values, tt.fallback)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got))
			assert.False(t, math.IsInf(got, 0))
		})
	}
}

func TestSafeLastMAFallsBackToLastClose(t *testing.T) {
	closes := []float64{100, 105}
	allNaN := []float64{math.NaN(), math.NaN()}

	assert.InDelta(t, 105, SafeLastMA(allNaN, closes), 1e-9)
	assert.InDelta(t, 50, SafeLastMA(allNaN, nil), 1e-9)
}

func TestAnnualizedVolatility(t *testing.T) {
	t.Run("insufficient history yields default", func(t *testing.T) {
		assert.InDelta(t, DefaultVolatility, AnnualizedVolatility(trendingPrices(10, 100, 1), 90), 1e-9)
	})

	t.Run("flat series clamps to minimum", func(t *testing.T) {
		flat := make([]float64, 120)
		for i := range flat {
			flat[i] = 100
		}
		assert.InDelta(t, MinVolatility, AnnualizedVolatility(flat, 90), 1e-9)
	})

	t.Run("volatile series exceeds minimum", func(t *testing.T) {
		prices := make([]float64, 120)
		prices[0] = 100
		for i := 1; i < len(prices); i++ {
			if i%2 == 0 {
				prices[i] = prices[i-1] * 1.02
			} else {
				prices[i] = prices[i-1] * 0.98
			}
		}
		vol := AnnualizedVolatility(prices, 90)
		assert.Greater(t, vol, MinVolatility)
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("full history produces finite set", func(t *testing.T) {
		prices := trendingPrices(250, 100, 0.25)
		set := Snapshot(prices, nil)

		for name, v := range map[string]float64{
			"rsi_9":         set.RSI9,
			"rsi_10":        set.RSI10,
			"rsi_20":        set.RSI20,
			"ma_20":         set.MA20,
			"ma_200":        set.MA200,
			"ma_return_90":  set.MAReturn90,
			"cum_return_60": set.CumReturn60,
			"current_price": set.CurrentPrice,
		} {
			assert.False(t, math.IsNaN(v), "%s should be finite", name)
			assert.False(t, math.IsInf(v, 0), "%s should be finite", name)
		}

		assert.InDelta(t, prices[len(prices)-1], set.CurrentPrice, 1e-9)
	})

	t.Run("short history uses fallbacks", func(t *testing.T) {
		prices := []float64{100, 101, 102}
		set := Snapshot(prices, nil)

		assert.InDelta(t, FallbackRSI, set.RSI10, 1e-9)
		assert.InDelta(t, 102, set.MA200, 1e-9, "MA falls back to last close")
		assert.InDelta(t, FallbackReturn, set.MAReturn90, 1e-9)
		assert.InDelta(t, FallbackReturn, set.CumReturn60, 1e-9)
	})

	t.Run("live quote overrides last close", func(t *testing.T) {
		price := 123.45
		set := Snapshot([]float64{100, 101}, &price)
		assert.InDelta(t, 123.45, set.CurrentPrice, 1e-9)
	})

	t.Run("empty series is safe", func(t *testing.T) {
		set := Snapshot(nil, nil)
		assert.InDelta(t, FallbackRSI, set.RSI10, 1e-9)
		assert.InDelta(t, 0, set.CurrentPrice, 1e-9)
	})
}
