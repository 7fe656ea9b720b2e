package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	alpacadata "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/marketdata"
)

// Alpaca REST endpoints; BaseURL config overrides
const (
	alpacaPaperURL = "https://paper-api.alpaca.markets"
	alpacaLiveURL  = "https://api.alpaca.markets"
)

// AlpacaBroker is the live/paper brokerage gateway. It also implements
// marketdata.Fetcher so the same credentials serve the data pipeline.
type AlpacaBroker struct {
	trading *alpaca.Client
	data    *alpacadata.Client
	logger  zerolog.Logger
}

// NewAlpacaBroker builds the trading and data clients from config. The
// paper endpoint is selected unless paper_trading is false or a base URL
// override is set.
func NewAlpacaBroker(cfg *config.BrokerConfig) *AlpacaBroker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.PaperTrading {
			baseURL = alpacaPaperURL
		} else {
			baseURL = alpacaLiveURL
		}
	}

	logger := config.NewLogger("broker")
	logger.Info().
		Bool("paper_trading", cfg.PaperTrading).
		Str("base_url", baseURL).
		Msg("Broker client initialized")

	return &AlpacaBroker{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.SecretKey,
			BaseURL:   baseURL,
		}),
		data: alpacadata.NewClient(alpacadata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.SecretKey,
		}),
		logger: logger,
	}
}

func (b *AlpacaBroker) Account(ctx context.Context) (*Account, error) {
	acct, err := b.trading.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &Account{
		PortfolioValue: acct.PortfolioValue.InexactFloat64(),
		Cash:           acct.Cash.InexactFloat64(),
		Equity:         acct.Equity.InexactFloat64(),
		BuyingPower:    acct.BuyingPower.InexactFloat64(),
		DayTradeCount:  int(acct.DaytradeCount),
		Status:         string(acct.Status),
	}, nil
}

func (b *AlpacaBroker) Positions(ctx context.Context) (map[string]Position, error) {
	positions, err := b.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	out := make(map[string]Position, len(positions))
	for _, p := range positions {
		pos := Position{
			Symbol:        p.Symbol,
			Qty:           p.Qty.InexactFloat64(),
			AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
		}
		if p.MarketValue != nil {
			pos.MarketValue = p.MarketValue.InexactFloat64()
		}
		if p.CurrentPrice != nil {
			pos.CurrentPrice = p.CurrentPrice.InexactFloat64()
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = p.UnrealizedPL.InexactFloat64()
		}
		out[p.Symbol] = pos
	}
	return out, nil
}

func (b *AlpacaBroker) IsMarketOpen(ctx context.Context) (bool, error) {
	clock, err := b.trading.GetClock()
	if err != nil {
		return false, fmt.Errorf("get clock: %w", err)
	}
	return clock.IsOpen, nil
}

func (b *AlpacaBroker) SubmitLimit(ctx context.Context, symbol string, qty float64, side Side, limitPrice float64) (*Order, error) {
	quantity := decimal.NewFromFloat(qty)
	limit := decimal.NewFromFloat(limitPrice)

	order, err := b.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &quantity,
		Side:        alpacaSide(side),
		Type:        alpaca.Limit,
		TimeInForce: alpaca.Day,
		LimitPrice:  &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("submit limit %s %s: %w", side, symbol, err)
	}

	b.logger.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("qty", qty).
		Float64("limit_price", limitPrice).
		Str("order_id", order.ID).
		Msg("Limit order submitted")

	return fromAlpacaOrder(order), nil
}

func (b *AlpacaBroker) SubmitMarket(ctx context.Context, symbol string, qty float64, side Side) (*Order, error) {
	quantity := decimal.NewFromFloat(qty)

	order, err := b.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &quantity,
		Side:        alpacaSide(side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, fmt.Errorf("submit market %s %s: %w", side, symbol, err)
	}

	b.logger.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("qty", qty).
		Str("order_id", order.ID).
		Msg("Market order submitted")

	return fromAlpacaOrder(order), nil
}

func (b *AlpacaBroker) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := b.trading.GetOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return fromAlpacaOrder(order), nil
}

func (b *AlpacaBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := b.trading.CancelOrder(orderID); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

func (b *AlpacaBroker) LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	quote, err := b.data.GetLatestQuote(symbol, alpacadata.GetLatestQuoteRequest{})
	if err != nil {
		return nil, fmt.Errorf("latest quote %s: %w", symbol, err)
	}

	return &marketdata.Quote{
		Bid: quote.BidPrice,
		Ask: quote.AskPrice,
	}, nil
}

// FetchBars implements marketdata.Fetcher over the Alpaca data API
func (b *AlpacaBroker) FetchBars(ctx context.Context, symbol string, start time.Time, interval string) (marketdata.BarSeries, error) {
	bars, err := b.data.GetBars(symbol, alpacadata.GetBarsRequest{
		TimeFrame: timeFrame(interval),
		Start:     start,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", symbol, err)
	}

	series := make(marketdata.BarSeries, len(bars))
	for i, bar := range bars {
		series[i] = marketdata.Bar{
			Timestamp: bar.Timestamp,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    float64(bar.Volume),
		}
	}
	return series, nil
}

// FetchQuote implements marketdata.Fetcher
func (b *AlpacaBroker) FetchQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	return b.LatestQuote(ctx, symbol)
}

func alpacaSide(side Side) alpaca.Side {
	if side == SideSell {
		return alpaca.Sell
	}
	return alpaca.Buy
}

func timeFrame(interval string) alpacadata.TimeFrame {
	switch interval {
	case "1h":
		return alpacadata.OneHour
	case "1min", "1m":
		return alpacadata.OneMin
	default:
		return alpacadata.OneDay
	}
}

func fromAlpacaOrder(order *alpaca.Order) *Order {
	out := &Order{
		ID:        order.ID,
		Symbol:    order.Symbol,
		Side:      Side(order.Side),
		Type:      OrderType(order.Type),
		FilledQty: order.FilledQty.InexactFloat64(),
		Status:    OrderStatus(order.Status),
		CreatedAt: order.CreatedAt,
		FilledAt:  order.FilledAt,
	}
	if order.Qty != nil {
		out.Qty = order.Qty.InexactFloat64()
	}
	if order.LimitPrice != nil {
		out.LimitPrice = order.LimitPrice.InexactFloat64()
	}
	if order.FilledAvgPrice != nil {
		out.AvgFillPrice = order.FilledAvgPrice.InexactFloat64()
	}
	return out
}
