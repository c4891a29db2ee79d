package trader

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/database"
	"trade-signal-bot-go/internal/metrics"
	"trade-signal-bot-go/internal/models"
)

// MockPriceSource is a mock implementation of the PriceSource interface.
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPriceSource) GetRecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func testTradingConfig() *config.Trading {
	return &config.Trading{
		Symbol:       "BTCUSDT",
		BaseAsset:    "BTC",
		TickInterval: 60,
		Quantity:     0.001,
		WindowSize:   100,
		RiskPerTrade: 0.02,
		StopLossPct:  0.02,
		MinQuantity:  0.0001,
	}
}

// setupService creates a ledger service over a fresh in-memory
// database and a mock price source.
func setupService(t *testing.T) (*TradingService, *database.TradeStore, *MockPriceSource) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Trade{}))

	store := database.NewTradeStore(db)
	prices := new(MockPriceSource)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	svc := NewTradingService(store, prices, testTradingConfig(), zap.NewNop(), m)
	return svc, store, prices
}

func float64Ptr(v float64) *float64 { return &v }

func insertTrade(t *testing.T, store *database.TradeStore, symbol, side string, quantity, price float64, timestamp int64, profit *float64) {
	t.Helper()
	require.NoError(t, store.Insert(&models.Trade{
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: timestamp,
		Strategy:  "TEST",
		Profit:    profit,
		Status:    models.StatusClosed,
	}))
}

func TestExecuteTrade(t *testing.T) {
	t.Run("Records a closed trade", func(t *testing.T) {
		svc, store, _ := setupService(t)

		trade, err := svc.ExecuteTrade("BTC", models.SideBuy, 0.5, 40000, "MANUAL", nil)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusClosed, trade.Status)

		stored, err := store.QueryAll(10)
		assert.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "BTC", stored[0].Symbol)
		assert.Equal(t, models.SideBuy, stored[0].Side)
	})

	t.Run("Rejects invalid input", func(t *testing.T) {
		svc, _, _ := setupService(t)

		_, err := svc.ExecuteTrade("BTC", "HODL", 1, 100, "MANUAL", nil)
		assert.Error(t, err)

		_, err = svc.ExecuteTrade("BTC", models.SideBuy, 0, 100, "MANUAL", nil)
		assert.Error(t, err)

		_, err = svc.ExecuteTrade("BTC", models.SideSell, 1, -5, "MANUAL", nil)
		assert.Error(t, err)
	})
}

func TestGetPortfolio(t *testing.T) {
	t.Run("Net-zero position is excluded", func(t *testing.T) {
		svc, store, _ := setupService(t)
		insertTrade(t, store, "X", models.SideBuy, 1.0, 100, 1000, nil)
		insertTrade(t, store, "X", models.SideSell, 1.0, 150, 2000, nil)

		portfolio, err := svc.GetPortfolio(context.Background())
		assert.NoError(t, err)
		assert.Empty(t, portfolio)
	})

	t.Run("Open position is valued at the current price", func(t *testing.T) {
		svc, store, prices := setupService(t)
		insertTrade(t, store, "BTC", models.SideBuy, 1.0, 40000, 1000, nil)
		insertTrade(t, store, "BTC", models.SideBuy, 1.0, 42000, 2000, nil)
		prices.On("GetCurrentPrice", mock.Anything, "BTCUSDT").Return(45000.0, nil)

		portfolio, err := svc.GetPortfolio(context.Background())
		assert.NoError(t, err)
		require.Len(t, portfolio, 1)

		item := portfolio[0]
		assert.Equal(t, "BTC", item.Symbol)
		assert.Equal(t, 2.0, item.Quantity)
		// Average price is total cost over trade count, not a
		// volume-weighted cost.
		assert.InDelta(t, 41000.0, item.AvgPrice, 1e-9)
		assert.Equal(t, 45000.0, item.CurrentPrice)
		assert.InDelta(t, 90000.0, item.Value, 1e-9)
		assert.InDelta(t, 8000.0, item.PnL, 1e-9)
	})

	t.Run("Falls back to the last trade price when the source fails", func(t *testing.T) {
		svc, store, prices := setupService(t)
		insertTrade(t, store, "BTC", models.SideBuy, 1.0, 40000, 1000, nil)
		insertTrade(t, store, "BTC", models.SideBuy, 1.0, 43000, 2000, nil)
		prices.On("GetCurrentPrice", mock.Anything, "BTCUSDT").Return(0.0, assert.AnError)

		portfolio, err := svc.GetPortfolio(context.Background())
		assert.NoError(t, err)
		require.Len(t, portfolio, 1)
		// Newest trade is seen first in the fold and becomes the fallback.
		assert.Equal(t, 43000.0, portfolio[0].CurrentPrice)
	})

	t.Run("Oversold symbol is simply not surfaced", func(t *testing.T) {
		svc, store, _ := setupService(t)
		insertTrade(t, store, "ETH", models.SideBuy, 1.0, 3000, 1000, nil)
		insertTrade(t, store, "ETH", models.SideSell, 2.0, 3000, 2000, nil)

		portfolio, err := svc.GetPortfolio(context.Background())
		assert.NoError(t, err)
		assert.Empty(t, portfolio)
	})
}

func TestGetPortfolioValue(t *testing.T) {
	svc, store, prices := setupService(t)
	insertTrade(t, store, "BTC", models.SideBuy, 1.0, 9000, 1000, nil)
	prices.On("GetCurrentPrice", mock.Anything, "BTCUSDT").Return(10000.0, nil)

	value, err := svc.GetPortfolioValue(context.Background())
	assert.NoError(t, err)
	assert.InDelta(t, 10000.0, value, 1e-9)
}

func TestGetTradeHistory(t *testing.T) {
	svc, store, _ := setupService(t)
	for i := 0; i < 60; i++ {
		insertTrade(t, store, "BTC", models.SideBuy, 0.001, float64(100+i), int64(1000+i), nil)
	}

	trades, err := svc.GetTradeHistory(0) // defaults to 50
	assert.NoError(t, err)
	require.Len(t, trades, 50)
	// Newest first.
	assert.Equal(t, int64(1059), trades[0].Timestamp)
	assert.Equal(t, int64(1010), trades[49].Timestamp)
}

func TestGetPerformance(t *testing.T) {
	t.Run("No trades", func(t *testing.T) {
		svc, _, _ := setupService(t)

		perf, err := svc.GetPerformance()
		assert.NoError(t, err)
		assert.Equal(t, 0, perf.TotalTrades)
		assert.Equal(t, 0.0, perf.WinRate)
		assert.Equal(t, 0.0, perf.MaxDrawdown)
	})

	t.Run("Counts wins and losses by profit sign", func(t *testing.T) {
		svc, store, _ := setupService(t)
		insertTrade(t, store, "X", models.SideBuy, 1.0, 100, 1000, nil)
		insertTrade(t, store, "X", models.SideSell, 1.0, 150, 2000, float64Ptr(50))

		perf, err := svc.GetPerformance()
		assert.NoError(t, err)
		assert.Equal(t, 2, perf.TotalTrades)
		assert.Equal(t, 1, perf.WinningTrades)
		assert.Equal(t, 0, perf.LosingTrades)
		assert.InDelta(t, 50.0, perf.TotalPnL, 1e-9)
		assert.InDelta(t, 50.0, perf.WinRate, 1e-9)
	})

	t.Run("Zero profit counts as losing", func(t *testing.T) {
		svc, store, _ := setupService(t)
		insertTrade(t, store, "X", models.SideSell, 1.0, 100, 1000, float64Ptr(0))

		perf, err := svc.GetPerformance()
		assert.NoError(t, err)
		assert.Equal(t, 1, perf.LosingTrades)
		assert.Equal(t, 0, perf.WinningTrades)
	})

	t.Run("Drawdown tracks the largest decline from the peak", func(t *testing.T) {
		svc, store, _ := setupService(t)
		insertTrade(t, store, "X", models.SideSell, 1, 100, 1000, float64Ptr(50))
		insertTrade(t, store, "X", models.SideSell, 1, 100, 2000, float64Ptr(-20))
		insertTrade(t, store, "X", models.SideSell, 1, 100, 3000, float64Ptr(30))
		insertTrade(t, store, "X", models.SideSell, 1, 100, 4000, float64Ptr(-5))

		perf, err := svc.GetPerformance()
		assert.NoError(t, err)
		assert.InDelta(t, 55.0, perf.TotalPnL, 1e-9)
		assert.Equal(t, 2, perf.WinningTrades)
		assert.Equal(t, 2, perf.LosingTrades)
		// Peak reaches 50, dips by 20, climbs to 80, dips by 5.
		assert.InDelta(t, 20.0, perf.MaxDrawdown, 1e-9)
	})
}
