// Package marketdata provides normalized OHLCV history and quote access
// with TTL caching. Fetch failures never propagate: callers receive empty
// series or nil prices and downstream strategy branches fall through.
package marketdata

import "time"

// Bar represents OHLCV data for a single period
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// BarSeries is a closed-bar history sorted by timestamp ascending
type BarSeries []Bar

// Empty reports whether the series holds no bars
func (s BarSeries) Empty() bool {
	return len(s) == 0
}

// Closes returns the close column of the series
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// LastClose returns the most recent close, or 0 when the series is empty
func (s BarSeries) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// Quote represents the latest bid/ask/last for a symbol
type Quote struct {
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`
}

// Mid returns the usable price from a quote: the bid/ask midpoint when both
// sides are positive, otherwise whichever side is positive, otherwise nil.
func (q Quote) Mid() *float64 {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		mid := (q.Bid + q.Ask) / 2
		return &mid
	case q.Ask > 0:
		ask := q.Ask
		return &ask
	case q.Bid > 0:
		bid := q.Bid
		return &bid
	default:
		return nil
	}
}
