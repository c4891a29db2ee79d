package models

// PortfolioItem is a derived position summary for one symbol.
type PortfolioItem struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Value        float64 `json:"value"`
	PnL          float64 `json:"pnl"`
}

// PerformanceMetrics summarizes realized trading performance.
type PerformanceMetrics struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`
	TotalPnL      float64 `json:"totalPnL"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
}
