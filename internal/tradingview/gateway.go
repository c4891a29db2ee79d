package tradingview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/metrics"
	"trade-signal-bot-go/internal/models"
)

// ErrIntegrationDisabled is returned when an alert arrives while the
// integration switch is off.
var ErrIntegrationDisabled = errors.New("TradingView integration is disabled")

// TradeExecutor is the alert-path entry point of the signal evaluator.
type TradeExecutor interface {
	EvaluateAlert(ctx context.Context, alert *models.Alert) (string, error)
}

// Result is what a successfully processed alert returns to the webhook
// caller.
type Result struct {
	TradeID string `json:"tradeId"`
	Action  string `json:"action"`
}

// Service is the alert gateway: it gates incoming webhook payloads on
// the enabled switch, normalizes them, forwards them to the evaluator
// and keeps an auditable history of each alert's outcome.
type Service struct {
	logger     *zap.Logger
	executor   TradeExecutor
	metrics    *metrics.Metrics
	maxHistory int

	mu      sync.RWMutex
	enabled bool
	history []models.AlertHistoryEntry
}

// NewService creates the gateway with the configured initial switch
// state and history retention.
func NewService(executor TradeExecutor, cfg *config.TradingView, logger *zap.Logger, m *metrics.Metrics) *Service {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Service{
		logger:     logger.Named("tradingview"),
		executor:   executor,
		metrics:    m,
		maxHistory: maxHistory,
		enabled:    cfg.Enabled,
	}
}

// ProcessAlert runs one webhook payload through the alert path. A
// history entry is created once the payload parses; on success it gets
// the trade id and Processed=true, on failure the error message with
// Processed left false. Payloads rejected by the switch or by parsing
// never reach the history.
func (s *Service) ProcessAlert(ctx context.Context, payload map[string]any) (*Result, error) {
	if !s.IsEnabled() {
		s.metrics.AlertsTotal.WithLabelValues("disabled").Inc()
		return nil, ErrIntegrationDisabled
	}

	alert, err := ParseAlert(payload)
	if err != nil {
		s.metrics.AlertsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	entryID := fmt.Sprintf("alert_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	s.appendHistory(models.AlertHistoryEntry{
		ID:         entryID,
		Alert:      *alert,
		ReceivedAt: time.Now(),
	})

	tradeID, err := s.executor.EvaluateAlert(ctx, alert)
	if err != nil {
		s.metrics.AlertsTotal.WithLabelValues("failed").Inc()
		s.recordOutcome(entryID, "", err.Error())
		return nil, err
	}

	s.metrics.AlertsTotal.WithLabelValues("processed").Inc()
	s.recordOutcome(entryID, tradeID, "")
	s.logger.Info("TradingView alert processed",
		zap.String("action", alert.Action),
		zap.String("symbol", alert.Symbol),
		zap.Float64("price", alert.Price),
		zap.String("trade_id", tradeID),
	)

	return &Result{TradeID: tradeID, Action: alert.Action}, nil
}

// appendHistory prepends a new entry and trims retention. Newer alerts
// sit at the front, so trimming drops the oldest entries.
func (s *Service) appendHistory(entry models.AlertHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append([]models.AlertHistoryEntry{entry}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// recordOutcome attaches the result to the entry by id. Entries are
// looked up rather than held by index because concurrent webhooks may
// have prepended newer entries in the meantime.
func (s *Service) recordOutcome(entryID, tradeID, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.history {
		if s.history[i].ID != entryID {
			continue
		}
		if errMsg != "" {
			s.history[i].Error = errMsg
		} else {
			s.history[i].Processed = true
			s.history[i].TradeID = tradeID
		}
		return
	}
	// Entry already trimmed by retention; nothing to record.
}

// SetEnabled flips the integration switch.
func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	s.logger.Info("TradingView integration toggled", zap.String("state", state))
}

// IsEnabled reports the integration switch state.
func (s *Service) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// GetHistory returns up to limit entries, newest first.
func (s *Service) GetHistory(limit int) []models.AlertHistoryEntry {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]models.AlertHistoryEntry, limit)
	copy(out, s.history[:limit])
	return out
}
