package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/models"
)

// SignalEvaluator turns indicator state or normalized alerts into
// executed trades against the position ledger. The periodic path is a
// two-line moving-average crossover filtered by an RSI band; the alert
// path sizes the position with a fixed-fraction risk rule.
type SignalEvaluator struct {
	service *TradingService
	cfg     *config.Trading
	logger  *zap.Logger
}

// NewSignalEvaluator creates an evaluator writing through the given
// ledger service.
func NewSignalEvaluator(service *TradingService, cfg *config.Trading, logger *zap.Logger) *SignalEvaluator {
	return &SignalEvaluator{
		service: service,
		cfg:     cfg,
		logger:  logger.Named("evaluator"),
	}
}

// EvaluatePeriodic runs the crossover strategy for one tick: buy a
// fixed quantity when the fast average is above the slow one and RSI
// is below the overbought band, sell the whole position when the fast
// average is below the slow one and RSI is above the oversold band.
// Errors are reported to the caller, which logs and moves on; a single
// cycle must never stop the loop.
func (e *SignalEvaluator) EvaluatePeriodic(ctx context.Context, currentPrice, sma20, sma50, rsi float64) error {
	portfolio, err := e.service.GetPortfolio(ctx)
	if err != nil {
		return fmt.Errorf("could not read portfolio: %w", err)
	}

	var held float64
	for _, item := range portfolio {
		if item.Symbol == e.cfg.BaseAsset && item.Quantity > 0 {
			held = item.Quantity
			break
		}
	}

	switch {
	case held == 0 && sma20 > sma50 && rsi < 70:
		if _, err := e.service.ExecuteTrade(e.cfg.BaseAsset, models.SideBuy, e.cfg.Quantity, currentPrice, "SMA_CROSSOVER", nil); err != nil {
			return fmt.Errorf("buy signal failed: %w", err)
		}
		e.logger.Info("BUY signal executed", zap.Float64("price", currentPrice))
	case held > 0 && sma20 < sma50 && rsi > 30:
		if _, err := e.service.ExecuteTrade(e.cfg.BaseAsset, models.SideSell, held, currentPrice, "SMA_CROSSOVER", nil); err != nil {
			return fmt.Errorf("sell signal failed: %w", err)
		}
		e.logger.Info("SELL signal executed", zap.Float64("price", currentPrice), zap.Float64("quantity", held))
	}

	return nil
}

// EvaluateAlert executes a normalized alert: position size is the
// portfolio risk amount divided by the per-unit stop-loss amount,
// floored at the configured minimum quantity. Errors propagate so the
// gateway can record them per alert.
func (e *SignalEvaluator) EvaluateAlert(ctx context.Context, alert *models.Alert) (string, error) {
	portfolioValue, err := e.service.GetPortfolioValue(ctx)
	if err != nil {
		return "", fmt.Errorf("could not value portfolio: %w", err)
	}

	quantity := e.positionSize(portfolioValue, alert.Price)

	if _, err := e.service.ExecuteTrade(alert.Symbol, alert.Action, quantity, alert.Price, "TRADINGVIEW_"+alert.Strategy, nil); err != nil {
		return "", err
	}

	tradeID := fmt.Sprintf("tv_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	e.logger.Info("Alert trade executed",
		zap.String("trade_id", tradeID),
		zap.String("symbol", alert.Symbol),
		zap.String("action", alert.Action),
		zap.Float64("quantity", quantity),
		zap.Float64("price", alert.Price),
	)
	return tradeID, nil
}

// positionSize applies the fixed-fraction risk rule.
func (e *SignalEvaluator) positionSize(portfolioValue, price float64) float64 {
	riskAmount := portfolioValue * e.cfg.RiskPerTrade
	stopLossAmount := price * e.cfg.StopLossPct
	quantity := riskAmount / stopLossAmount
	if quantity < e.cfg.MinQuantity {
		quantity = e.cfg.MinQuantity
	}
	return quantity
}
