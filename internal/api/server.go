package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/metrics"
	"trade-signal-bot-go/internal/models"
	"trade-signal-bot-go/internal/trader"
	"trade-signal-bot-go/internal/tradingview"
)

// Server provides the HTTP interface over the trading core: portfolio
// and performance reads, manual trade execution and the TradingView
// webhook. Routing and JSON marshaling only; all behavior lives in the
// injected services.
type Server struct {
	server      *http.Server
	logger      *zap.Logger
	trading     *trader.TradingService
	agent       *trader.Agent
	tradingView *tradingview.Service
	apiKey      string
	baseAsset   string
}

// NewServer creates the API server. When an API key is configured the
// webhook endpoint requires a matching X-API-Key header.
func NewServer(cfg *config.Config, trading *trader.TradingService, agent *trader.Agent, tv *tradingview.Service, logger *zap.Logger) *Server {
	s := &Server{
		logger:      logger.Named("api-server"),
		trading:     trading,
		agent:       agent,
		tradingView: tv,
		apiKey:      cfg.Server.ApiKey,
		baseAsset:   cfg.Trading.BaseAsset,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/portfolio", s.portfolioHandler)
	mux.HandleFunc("/api/portfolio/value", s.portfolioValueHandler)
	mux.HandleFunc("/api/trading/status", s.tradingStatusHandler)
	mux.HandleFunc("/api/trading/history", s.tradingHistoryHandler)
	mux.HandleFunc("/api/trading/trade", s.manualTradeHandler)
	mux.HandleFunc("/api/tradingview/webhook", s.webhookHandler)
	mux.HandleFunc("/api/tradingview/status", s.tradingViewStatusHandler)
	mux.HandleFunc("/api/tradingview/toggle", s.tradingViewToggleHandler)
	mux.HandleFunc("/api/tradingview/history", s.tradingViewHistoryHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) portfolioHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	portfolio, err := s.trading.GetPortfolio(r.Context())
	if err != nil {
		s.logger.Error("Failed to get portfolio", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get portfolio")
		return
	}
	s.writeJSON(w, http.StatusOK, portfolio)
}

func (s *Server) portfolioValueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	value, err := s.trading.GetPortfolioValue(r.Context())
	if err != nil {
		s.logger.Error("Failed to get portfolio value", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get portfolio value")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{"value": value})
}

func (s *Server) tradingStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	performance, err := s.trading.GetPerformance()
	if err != nil {
		s.logger.Error("Failed to get performance", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get trading status")
		return
	}

	status := struct {
		IsActive    bool                       `json:"isActive"`
		Performance *models.PerformanceMetrics `json:"performance"`
		LastUpdate  time.Time                  `json:"lastUpdate"`
	}{
		IsActive:    s.agent.IsRunning(),
		Performance: performance,
		LastUpdate:  s.agent.LastUpdate(),
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) tradingHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	trades, err := s.trading.GetTradeHistory(50)
	if err != nil {
		s.logger.Error("Failed to get trade history", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get trade history")
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) manualTradeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Side     string  `json:"side"`
		Quantity float64 `json:"quantity"`
		Price    float64 `json:"price"`
		Strategy string  `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Side == "" || req.Quantity == 0 || req.Price == 0 {
		s.writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.Strategy == "" {
		req.Strategy = "MANUAL"
	}

	if _, err := s.trading.ExecuteTrade(s.baseAsset, req.Side, req.Quantity, req.Price, req.Strategy, nil); err != nil {
		s.logger.Error("Manual trade failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Trade executed successfully",
	})
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
		s.writeError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.tradingView.ProcessAlert(r.Context(), payload)
	if err != nil {
		if errors.Is(err, tradingview.ErrInvalidAlert) || errors.Is(err, tradingview.ErrIntegrationDisabled) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Webhook processing failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) tradingViewStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.tradingView.IsEnabled()})
}

func (s *Server) tradingViewToggleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.tradingView.SetEnabled(req.Enabled)
	s.writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.tradingView.IsEnabled()})
}

func (s *Server) tradingViewHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	s.writeJSON(w, http.StatusOK, s.tradingView.GetHistory(limit))
}
