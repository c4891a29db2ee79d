package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance     Binance     `mapstructure:"binance"`
	Trading     Trading     `mapstructure:"trading"`
	TradingView TradingView `mapstructure:"tradingview"`
	Logger      Logger      `mapstructure:"logger"`
	Server      Server      `mapstructure:"server"`
	Database    Database    `mapstructure:"database"`
}

// Binance holds the configuration for the Binance market-data API.
type Binance struct {
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port   int    `mapstructure:"port"`
	ApiKey string `mapstructure:"api_key"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds the configuration for the periodic trading loop
// and the position-sizing rules.
type Trading struct {
	Symbol       string  `mapstructure:"symbol"`        // exchange pair the loop tracks, e.g. BTCUSDT
	BaseAsset    string  `mapstructure:"base_asset"`    // symbol trades are recorded under, e.g. BTC
	TickInterval int     `mapstructure:"tick_interval"` // seconds between trading cycles
	Quantity     float64 `mapstructure:"quantity"`      // fixed quantity for crossover buys
	WindowSize   int     `mapstructure:"window_size"`   // rolling price-window bound
	RiskPerTrade float64 `mapstructure:"risk_per_trade"`
	StopLossPct  float64 `mapstructure:"stop_loss_pct"`
	MinQuantity  float64 `mapstructure:"min_quantity"`
}

// TradingView holds the configuration for the webhook alert integration.
type TradingView struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxHistory int  `mapstructure:"max_history"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("trading.symbol", "BTCUSDT")
	viper.SetDefault("trading.base_asset", "BTC")
	viper.SetDefault("trading.tick_interval", 60)
	viper.SetDefault("trading.quantity", 0.001)
	viper.SetDefault("trading.window_size", 100)
	viper.SetDefault("trading.risk_per_trade", 0.02)
	viper.SetDefault("trading.stop_loss_pct", 0.02)
	viper.SetDefault("trading.min_quantity", 0.0001)
	viper.SetDefault("tradingview.enabled", false)
	viper.SetDefault("tradingview.max_history", 1000)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
