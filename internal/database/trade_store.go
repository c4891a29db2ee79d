package database

import (
	"fmt"

	"gorm.io/gorm"

	"trade-signal-bot-go/internal/models"
)

// TradeStore is the durable, append-only store of trade records.
// Each insert is an independent row; ordering and position folding
// happen at read time.
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore creates a trade store backed by the given gorm connection.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

// Insert persists a new trade record.
func (s *TradeStore) Insert(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// QueryClosed returns all CLOSED trades ordered by timestamp. When
// symbol is non-empty the result is limited to that symbol. Insertion
// order is preserved for timestamp ties via the primary key.
func (s *TradeStore) QueryClosed(symbol string, newestFirst bool) ([]models.Trade, error) {
	var trades []models.Trade
	q := s.db.Where("status = ?", models.StatusClosed)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	order := "timestamp asc, id asc"
	if newestFirst {
		order = "timestamp desc, id desc"
	}
	if err := q.Order(order).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w", err)
	}
	return trades, nil
}

// QueryAll returns up to limit trades ordered newest-first.
func (s *TradeStore) QueryAll(limit int) ([]models.Trade, error) {
	var trades []models.Trade
	q := s.db.Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	return trades, nil
}
