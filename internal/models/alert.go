package models

import "time"

// AlertChart carries optional chart metadata attached to a TradingView alert.
type AlertChart struct {
	Timeframe string `json:"timeframe,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
}

// Alert is the canonical form of an external TradingView alert after
// normalization: ready to be turned into a trade.
type Alert struct {
	Symbol    string      `json:"symbol"`
	Action    string      `json:"action"` // "BUY" or "SELL"
	Price     float64     `json:"price"`
	Strategy  string      `json:"strategy"`
	Timestamp string      `json:"timestamp"`
	Message   string      `json:"message,omitempty"`
	Chart     *AlertChart `json:"chart,omitempty"`
}

// AlertHistoryEntry records the outcome of a single received alert.
// Processed stays false when execution failed; Error holds the reason.
type AlertHistoryEntry struct {
	ID         string    `json:"id"`
	Alert      Alert     `json:"alert"`
	Processed  bool      `json:"processed"`
	TradeID    string    `json:"tradeId,omitempty"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}
