package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"trade-signal-bot-go/internal/api"
	"trade-signal-bot-go/internal/binance"
	"trade-signal-bot-go/internal/config"
	"trade-signal-bot-go/internal/database"
	"trade-signal-bot-go/internal/logger"
	"trade-signal-bot-go/internal/metrics"
	"trade-signal-bot-go/internal/trader"
	"trade-signal-bot-go/internal/tradingview"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database and trade store
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewTradeStore(db)
	log.Info("Database connection successful and schema migrated.")

	// Market-data client; the agent degrades to fallback prices when
	// the exchange is unreachable, so startup does not probe it.
	restClient := binance.NewRestClient(&cfg.Binance, log)

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Wire the trading core
	tradingService := trader.NewTradingService(store, restClient, &cfg.Trading, log, m)
	evaluator := trader.NewSignalEvaluator(tradingService, &cfg.Trading, log)
	agent := trader.NewAgent(restClient, evaluator, &cfg.Trading, log, m)
	tvService := tradingview.NewService(evaluator, &cfg.TradingView, log, m)

	apiServer := api.NewServer(&cfg, tradingService, agent, tvService, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agent.Start(ctx)
	apiServer.Start()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	agent.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server cleanly", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
