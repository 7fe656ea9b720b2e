package indicators

import "math"

// Windows used by the strategy engines
const (
	WindowRSIShort  = 9
	WindowRSI       = 10
	WindowRSILong   = 20
	WindowMAShort   = 20
	WindowMALong    = 200
	WindowMAReturn  = 90
	WindowCumReturn = 60
)

// Set is the per-symbol indicator snapshot consumed by the strategy
// engines each evaluation tick. Every field is finite: missing values are
// replaced by the documented fallbacks at construction.
type Set struct {
	RSI9         float64 `json:"rsi_9"`
	RSI10        float64 `json:"rsi_10"`
	RSI20        float64 `json:"rsi_20"`
	MA20         float64 `json:"ma_20"`
	MA200        float64 `json:"ma_200"`
	MAReturn90   float64 `json:"ma_return_90"`
	CumReturn60  float64 `json:"cum_return_60"`
	CurrentPrice float64 `json:"current_price"`
}

// Snapshot computes the indicator set for one symbol from its close
// series. currentPrice overrides the last close when positive (a live
// quote beats a stale bar).
func Snapshot(closes []float64, currentPrice *float64) Set {
	price := SafeLast(closes, math.NaN())
	if currentPrice != nil && *currentPrice > 0 {
		price = *currentPrice
	}
	if math.IsNaN(price) {
		price = 0
	}

	return Set{
		RSI9:         SafeLastRSI(RSI(closes, WindowRSIShort)),
		RSI10:        SafeLastRSI(RSI(closes, WindowRSI)),
		RSI20:        SafeLastRSI(RSI(closes, WindowRSILong)),
		MA20:         SafeLastMA(SMA(closes, WindowMAShort), closes),
		MA200:        SafeLastMA(SMA(closes, WindowMALong), closes),
		MAReturn90:   SafeLastReturn(MAReturn(closes, WindowMAReturn)),
		CumReturn60:  SafeLastReturn(CumReturn(closes, WindowCumReturn)),
		CurrentPrice: price,
	}
}
