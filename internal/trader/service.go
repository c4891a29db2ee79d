package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/metrics"
	"trade-signal-bot-go/internal/models"
)

// TradingService owns the position ledger: it records trades and
// derives positions, portfolio valuation and performance metrics from
// the trade history. Positions are never cached; every read folds the
// closed trades again, so concurrent inserts only need the store's
// per-record atomicity.
type TradingService struct {
	store   TradeStore
	prices  PriceSource
	logger  *zap.Logger
	metrics *metrics.Metrics
	quote   string // quote asset appended to a symbol to form the exchange pair
}

// NewTradingService creates the ledger service. The quote asset used
// for price lookups is derived from the configured trading pair, e.g.
// BTCUSDT with base asset BTC yields USDT.
func NewTradingService(store TradeStore, prices PriceSource, cfg *config.Trading, logger *zap.Logger, m *metrics.Metrics) *TradingService {
	quote := strings.TrimPrefix(cfg.Symbol, cfg.BaseAsset)
	if quote == "" || quote == cfg.Symbol {
		quote = "USDT"
	}
	return &TradingService{
		store:   store,
		prices:  prices,
		logger:  logger.Named("trading-service"),
		metrics: m,
		quote:   quote,
	}
}

// ExecuteTrade validates and durably records a CLOSED trade. The
// optional profit is attached at insert time when the caller has
// already realized it; trades are immutable afterwards.
func (s *TradingService) ExecuteTrade(symbol, side string, quantity, price float64, strategy string, profit *float64) (*models.Trade, error) {
	if side != models.SideBuy && side != models.SideSell {
		return nil, fmt.Errorf("invalid trade side %q", side)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid trade quantity %f", quantity)
	}
	if price <= 0 {
		return nil, fmt.Errorf("invalid trade price %f", price)
	}

	trade := &models.Trade{
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Now().Unix(),
		Strategy:  strategy,
		Profit:    profit,
		Status:    models.StatusClosed,
	}

	if err := s.store.Insert(trade); err != nil {
		return nil, err
	}

	s.metrics.TradesTotal.WithLabelValues(side).Inc()
	s.logger.Info("Trade recorded",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.String("strategy", strategy),
	)
	return trade, nil
}

// positionAccum is the per-symbol fold state while walking trades.
type positionAccum struct {
	quantity  float64
	totalCost float64
	trades    int
	lastPrice float64 // most recent trade price, fallback when the price source fails
}

// GetPortfolio folds all closed trades into per-symbol positions and
// enriches symbols with positive net quantity with a current price.
// The average price is total cost divided by trade count, a deliberate
// simplification kept from the original valuation rules, not a true
// volume-weighted cost.
func (s *TradingService) GetPortfolio(ctx context.Context) ([]models.PortfolioItem, error) {
	trades, err := s.store.QueryClosed("", true)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]*positionAccum)
	var order []string

	for _, trade := range trades {
		acc, ok := positions[trade.Symbol]
		if !ok {
			acc = &positionAccum{lastPrice: trade.Price}
			positions[trade.Symbol] = acc
			order = append(order, trade.Symbol)
		}

		if trade.Side == models.SideBuy {
			acc.quantity += trade.Quantity
			acc.totalCost += trade.Quantity * trade.Price
		} else {
			acc.quantity -= trade.Quantity
			acc.totalCost -= trade.Quantity * trade.Price
		}
		acc.trades++
	}

	portfolio := make([]models.PortfolioItem, 0, len(order))
	for _, symbol := range order {
		acc := positions[symbol]
		if acc.quantity <= 0 {
			continue
		}

		avgPrice := acc.totalCost / float64(acc.trades)
		currentPrice := s.currentPrice(ctx, symbol, acc.lastPrice)
		value := acc.quantity * currentPrice

		portfolio = append(portfolio, models.PortfolioItem{
			Symbol:       symbol,
			Quantity:     acc.quantity,
			AvgPrice:     avgPrice,
			CurrentPrice: currentPrice,
			Value:        value,
			PnL:          value - acc.totalCost,
		})
	}

	return portfolio, nil
}

// currentPrice resolves a live price for the symbol, degrading to the
// most recent trade price when the price source is unavailable.
func (s *TradingService) currentPrice(ctx context.Context, symbol string, fallback float64) float64 {
	price, err := s.prices.GetCurrentPrice(ctx, symbol+s.quote)
	if err != nil {
		s.logger.Warn("Price source unavailable, valuing position at last trade price",
			zap.String("symbol", symbol),
			zap.Float64("fallback", fallback),
			zap.Error(err),
		)
		return fallback
	}
	return price
}

// GetPortfolioValue returns the summed market value of all positions.
func (s *TradingService) GetPortfolioValue(ctx context.Context) (float64, error) {
	portfolio, err := s.GetPortfolio(ctx)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, item := range portfolio {
		total += item.Value
	}
	return total, nil
}

// GetTradeHistory returns up to limit trades, newest first.
func (s *TradingService) GetTradeHistory(limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.QueryAll(limit)
}

// GetPerformance iterates closed trades in timestamp order and folds
// realized profits into win/loss counters, total P&L and the maximum
// drawdown from the running peak. Only trades carrying a profit are
// counted as winning or losing; zero profit counts as losing. The fold
// is order-sensitive and must not be reordered.
func (s *TradingService) GetPerformance() (*models.PerformanceMetrics, error) {
	trades, err := s.store.QueryClosed("", false)
	if err != nil {
		return nil, err
	}

	perf := &models.PerformanceMetrics{TotalTrades: len(trades)}

	var peak, maxDrawdown float64
	for _, trade := range trades {
		if trade.Profit == nil {
			continue
		}
		profit := *trade.Profit
		perf.TotalPnL += profit
		if profit > 0 {
			perf.WinningTrades++
		} else {
			perf.LosingTrades++
		}

		current := peak + profit
		if current > peak {
			peak = current
		} else if drawdown := peak - current; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	perf.MaxDrawdown = maxDrawdown

	if perf.TotalTrades > 0 {
		perf.WinRate = float64(perf.WinningTrades) / float64(perf.TotalTrades) * 100
	}

	return perf, nil
}
