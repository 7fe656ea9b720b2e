// Package indicators computes the technical indicators consumed by the
// strategy engines: Wilder RSI, simple moving averages, rolling mean
// returns, and cumulative returns. All series functions return output of
// equal length to their input with NaN in the warmup region; SafeLast*
// helpers convert those series into finite values with documented
// fallbacks so strategy evaluation never sees NaN.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/rs/zerolog/log"
)

// Fallback constants used when an indicator cannot be computed
const (
	FallbackRSI    = 50.0
	FallbackReturn = 0.0

	// Annualized volatility defaults for inverse-volatility weighting
	DefaultVolatility = 0.3
	MinVolatility     = 0.01
	tradingDaysPerYr  = 252
)

// RSI computes the Wilder relative strength index over the close series.
// The result has the same length as the input; leading values without
// sufficient history are NaN.
func RSI(closes []float64, window int) []float64 {
	if window < 1 || len(closes) == 0 {
		return nanSeries(len(closes))
	}

	computed := computeGuarded(func() []float64 {
		rsi := momentum.NewRsiWithPeriod[float64](window)
		return chanToSlice(rsi.Compute(sliceToChan(closes)))
	})

	return padLeft(computed, len(closes))
}

// SMA computes the simple moving average over the close series. Leading
// values without a full window are NaN.
func SMA(closes []float64, window int) []float64 {
	if window < 1 || len(closes) == 0 {
		return nanSeries(len(closes))
	}

	computed := computeGuarded(func() []float64 {
		sma := trend.NewSmaWithPeriod[float64](window)
		return chanToSlice(sma.Compute(sliceToChan(closes)))
	})

	return padLeft(computed, len(closes))
}

// MAReturn computes the rolling mean of single-period percentage returns
// over window, expressed in percent.
func MAReturn(closes []float64, window int) []float64 {
	out := nanSeries(len(closes))
	if window < 1 || len(closes) < 2 {
		return out
	}

	returns := make([]float64, len(closes))
	returns[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			returns[i] = math.NaN()
			continue
		}
		returns[i] = (closes[i] - closes[i-1]) / closes[i-1]
	}

	for i := window; i < len(closes); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(returns[j]) {
				valid = false
				break
			}
			sum += returns[j]
		}
		if valid {
			out[i] = sum / float64(window) * 100
		}
	}

	return out
}

// CumReturn computes the percentage change over window periods:
// (p[i]/p[i-window] - 1) × 100.
func CumReturn(closes []float64, window int) []float64 {
	out := nanSeries(len(closes))
	if window < 1 {
		return out
	}

	for i := window; i < len(closes); i++ {
		if closes[i-window] == 0 {
			continue
		}
		out[i] = (closes[i]/closes[i-window] - 1) * 100
	}

	return out
}

// SafeLast returns the most recent finite value in the series, falling
// back to the given constant when none exists. The result is never NaN
// or infinite.
func SafeLast(values []float64, fallback float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return fallback
}

// SafeLastRSI reads an RSI series with the neutral 50.0 fallback
func SafeLastRSI(values []float64) float64 {
	return SafeLast(values, FallbackRSI)
}

// SafeLastMA reads a moving-average series, falling back to the last
// close when the average is unavailable, and to 50.0 when there is no
// close either.
func SafeLastMA(values, closes []float64) float64 {
	fallback := FallbackRSI
	if last := SafeLast(closes, math.NaN()); !math.IsNaN(last) {
		fallback = last
	}
	return SafeLast(values, fallback)
}

// SafeLastReturn reads a return series with the 0.0 fallback
func SafeLastReturn(values []float64) float64 {
	return SafeLast(values, FallbackReturn)
}

// AnnualizedVolatility computes stddev of the last `window` daily close
// returns scaled by √252. With fewer than `window` returns it yields the
// 0.3 default; the result is clamped to at least 0.01.
func AnnualizedVolatility(closes []float64, window int) float64 {
	returns := dailyReturns(closes)
	if len(returns) < window {
		return DefaultVolatility
	}

	tail := returns[len(returns)-window:]

	mean := 0.0
	for _, r := range tail {
		mean += r
	}
	mean /= float64(len(tail))

	variance := 0.0
	for _, r := range tail {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(tail))

	vol := math.Sqrt(variance) * math.Sqrt(tradingDaysPerYr)
	if vol < MinVolatility {
		vol = MinVolatility
	}
	return vol
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

// computeGuarded runs an indicator computation, converting panics into an
// empty result so SafeLast falls back instead of crashing the tick.
func computeGuarded(fn func() []float64) (out []float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Indicator computation failed, using fallback")
			out = nil
		}
	}()
	return fn()
}

// padLeft left-pads computed values with NaN to the requested length.
// Streaming indicators consume their warmup internally, so the pad width
// is whatever the computation swallowed.
func padLeft(values []float64, length int) []float64 {
	if len(values) >= length {
		return values[len(values)-length:]
	}
	out := nanSeries(length)
	copy(out[length-len(values):], values)
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func sliceToChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

func chanToSlice(ch <-chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}
