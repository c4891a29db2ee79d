package trader

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/indicators"
	"trade-signal-bot-go/internal/metrics"
)

// Agent drives the periodic trading path: on a fixed interval it
// fetches the current price, updates the rolling window, computes
// indicators and hands them to the evaluator. Ticks execute on the
// loop goroutine, so they can never overlap; stopping the agent lets
// an in-flight tick finish before the loop exits.
type Agent struct {
	logger    *zap.Logger
	cfg       *config.Trading
	prices    PriceSource
	evaluator *SignalEvaluator
	window    *PriceWindow
	metrics   *metrics.Metrics

	mu         sync.Mutex
	running    bool
	stop       chan struct{}
	done       chan struct{}
	lastUpdate time.Time
}

// NewAgent creates a stopped agent.
func NewAgent(prices PriceSource, evaluator *SignalEvaluator, cfg *config.Trading, logger *zap.Logger, m *metrics.Metrics) *Agent {
	return &Agent{
		logger:    logger.Named("agent"),
		cfg:       cfg,
		prices:    prices,
		evaluator: evaluator,
		window:    NewPriceWindow(cfg.WindowSize),
		metrics:   m,
	}
}

// Start seeds the price window and launches the trading loop. Starting
// a running agent is a no-op.
func (a *Agent) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}

	a.seedWindow(ctx)

	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.run(ctx, a.stop, a.done)

	a.logger.Info("Trading agent started",
		zap.String("symbol", a.cfg.Symbol),
		zap.Int("tick_interval_seconds", a.cfg.TickInterval),
	)
}

// Stop halts scheduling of new ticks and waits for the loop to exit.
// Stopping a stopped agent is a no-op.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	done := a.done
	a.mu.Unlock()

	<-done
	a.logger.Info("Trading agent stopped")
}

// IsRunning reports whether the trading loop is active.
func (a *Agent) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// LastUpdate returns the completion time of the most recent tick.
func (a *Agent) LastUpdate() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastUpdate
}

// seedWindow fills the window with recent exchange history, or with a
// synthetic series when the price source is unavailable, so the loop
// starts with full indicator context either way.
func (a *Agent) seedWindow(ctx context.Context) {
	closes, err := a.prices.GetRecentCloses(ctx, a.cfg.Symbol, "1m", a.cfg.WindowSize)
	if err != nil {
		a.logger.Warn("Could not fetch price history, seeding window with synthetic data", zap.Error(err))
		for i := 0; i < a.cfg.WindowSize; i++ {
			a.window.Append(50000 + rand.Float64()*10000)
		}
		return
	}

	for _, c := range closes {
		a.window.Append(c)
	}
	a.logger.Info("Price window seeded from exchange history", zap.Int("prices", a.window.Len()))
}

func (a *Agent) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	interval := time.Duration(a.cfg.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick runs one trading cycle. Failures are observability events only;
// they never escape the tick boundary.
func (a *Agent) tick(ctx context.Context) {
	start := time.Now()
	a.metrics.TicksTotal.Inc()

	currentPrice := a.fetchPrice(ctx)
	a.window.Append(currentPrice)

	snapshot := a.window.Snapshot()
	sma20 := indicators.SMA(snapshot, 20)
	sma50 := indicators.SMA(snapshot, 50)
	rsi := indicators.RSI(snapshot, 14)

	if err := a.evaluator.EvaluatePeriodic(ctx, currentPrice, sma20, sma50, rsi); err != nil {
		a.metrics.TickErrorsTotal.Inc()
		a.logger.Error("Trading cycle failed", zap.Error(err))
	}

	a.metrics.TickDuration.Observe(time.Since(start).Seconds())
	a.mu.Lock()
	a.lastUpdate = time.Now()
	a.mu.Unlock()
}

// fetchPrice gets the current price, degrading to the last window
// price (or a fixed default when the window is empty) on failure.
func (a *Agent) fetchPrice(ctx context.Context) float64 {
	price, err := a.prices.GetCurrentPrice(ctx, a.cfg.Symbol)
	if err != nil {
		fallback := a.window.Last()
		if fallback == 0 {
			fallback = 50000
		}
		a.logger.Warn("Could not fetch current price, using fallback",
			zap.Float64("fallback", fallback),
			zap.Error(err),
		)
		return fallback
	}
	return price
}
