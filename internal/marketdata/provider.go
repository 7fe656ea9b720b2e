package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Provider serves normalized price history and current prices.
// GetHistory returns an empty series on any failure; GetCurrentPrice
// returns nil. Neither ever returns an error to the caller.
type Provider interface {
	GetHistory(ctx context.Context, symbol, period, interval string) BarSeries
	GetCurrentPrice(ctx context.Context, symbol string) *float64
}

// Fetcher is the raw upstream data source (typically the broker's data API)
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, start time.Time, interval string) (BarSeries, error)
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// FetchProvider adapts a Fetcher into a Provider with rate limiting and
// the safe-failure semantics downstream components rely on.
type FetchProvider struct {
	fetcher Fetcher
	limiter *rate.Limiter
	now     func() time.Time
}

// NewFetchProvider creates a provider over the given fetcher.
// ratePerSecond bounds upstream request rate across all symbols.
func NewFetchProvider(fetcher Fetcher, ratePerSecond float64) *FetchProvider {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &FetchProvider{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		now:     time.Now,
	}
}

// GetHistory fetches history for symbol. Failures are logged and yield an
// empty series.
func (p *FetchProvider) GetHistory(ctx context.Context, symbol, period, interval string) BarSeries {
	start, err := periodStart(period, p.now())
	if err != nil {
		log.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("period", period).
			Msg("Invalid history period")
		return BarSeries{}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Rate limiter wait aborted")
		return BarSeries{}
	}

	series, err := p.fetcher.FetchBars(ctx, symbol, start, interval)
	if err != nil {
		log.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("period", period).
			Str("interval", interval).
			Msg("History fetch failed, returning empty series")
		return BarSeries{}
	}

	log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("bars", len(series)).
		Msg("Fetched history")

	return series
}

// GetCurrentPrice returns the mid-quote for symbol, or nil when the quote
// is unreadable or has no positive side.
func (p *FetchProvider) GetCurrentPrice(ctx context.Context, symbol string) *float64 {
	if err := p.limiter.Wait(ctx); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Rate limiter wait aborted")
		return nil
	}

	quote, err := p.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed")
		return nil
	}
	if quote == nil {
		return nil
	}

	return quote.Mid()
}

// periodStart converts a duration string ("1y", "6mo", "5d") into the
// fetch window start relative to now.
func periodStart(period string, now time.Time) (time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" || period == "max" {
		return now.AddDate(-20, 0, 0), nil
	}

	var numPart, unit string
	for i, r := range period {
		if r < '0' || r > '9' {
			numPart = period[:i]
			unit = period[i:]
			break
		}
	}
	if numPart == "" || unit == "" {
		return time.Time{}, fmt.Errorf("unparseable period %q", period)
	}

	n, err := strconv.Atoi(numPart)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("unparseable period %q", period)
	}

	switch unit {
	case "y":
		return now.AddDate(-n, 0, 0), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	case "w":
		return now.AddDate(0, 0, -7*n), nil
	case "d":
		return now.AddDate(0, 0, -n), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period unit %q", unit)
	}
}
