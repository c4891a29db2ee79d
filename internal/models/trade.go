package models

import "gorm.io/gorm"

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Trade represents a completed trade record in the database.
// It is immutable once inserted; realized profit is supplied at
// insert time when the caller knows it.
type Trade struct {
	gorm.Model
	Symbol    string   `json:"symbol"`
	Side      string   `json:"side"` // "BUY" or "SELL"
	Quantity  float64  `json:"quantity"`
	Price     float64  `json:"price"`
	Timestamp int64    `json:"timestamp"`
	Strategy  string   `json:"strategy"`
	Profit    *float64 `json:"profit,omitempty"`
	Status    string   `json:"status"` // "OPEN" or "CLOSED"
}
