package trader

import (
	"context"

	"trade-signal-bot-go/internal/models"
)

// PriceSource supplies live market prices. Implemented by the Binance
// REST client; callers fall back to cached or synthetic data when it
// fails.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetRecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
}

// TradeStore is the durable, append-only store of trade records.
type TradeStore interface {
	Insert(trade *models.Trade) error
	QueryClosed(symbol string, newestFirst bool) ([]models.Trade, error)
	QueryAll(limit int) ([]models.Trade, error)
}
