package tradingview

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"trade-signal-bot-go/internal/models"
)

// ErrInvalidAlert marks a webhook payload whose symbol, action or
// price is missing or malformed. Never retried.
var ErrInvalidAlert = errors.New("invalid alert data: missing or invalid symbol, action, or price")

// symbolMap converts common exchange-pair spellings to internal symbols.
var symbolMap = map[string]string{
	"BTCUSD":  "BTC",
	"BTCUSDT": "BTC",
	"ETHUSD":  "ETH",
	"ETHUSDT": "ETH",
	"BTC/USD": "BTC",
	"ETH/USD": "ETH",
}

// ParseAlert normalizes a raw TradingView webhook payload into a
// canonical alert. Field names vary between alert templates, so each
// value is resolved from its known aliases. Normalization is
// all-or-nothing: any invalid required field fails the whole payload.
func ParseAlert(payload map[string]any) (*models.Alert, error) {
	symbol := stringField(payload, "symbol", "ticker")
	if symbol == "" {
		symbol = "BTCUSDT"
	}
	symbol = normalizeSymbol(symbol)

	action, err := normalizeAction(stringField(payload, "action", "side", "signal"))
	if err != nil {
		return nil, err
	}

	price, err := parsePrice(firstField(payload, "price", "close", "last_price"))
	if err != nil {
		return nil, err
	}

	strategy := stringField(payload, "strategy", "alert_name")
	if strategy == "" {
		strategy = "TRADINGVIEW"
	}

	timestamp := stringField(payload, "timestamp")
	if timestamp == "" {
		timestamp = time.Now().Format(time.RFC3339)
	}

	alert := &models.Alert{
		Symbol:    symbol,
		Action:    action,
		Price:     price,
		Strategy:  strategy,
		Timestamp: timestamp,
		Message:   stringField(payload, "message", "comment"),
	}

	if chart, ok := payload["chart"].(map[string]any); ok {
		alert.Chart = &models.AlertChart{
			Timeframe: stringField(chart, "timeframe"),
			Exchange:  stringField(chart, "exchange"),
		}
	}

	return alert, nil
}

// firstField returns the first present value among the given keys.
func firstField(payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// stringField returns the first present value among the given keys,
// rendered as a string. Non-string scalars are formatted; anything
// else is treated as absent.
func stringField(payload map[string]any, keys ...string) string {
	switch v := firstField(payload, keys...).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// normalizeSymbol maps known exchange-pair spellings to the internal
// symbol; unknown symbols pass through upper-cased.
func normalizeSymbol(symbol string) string {
	upper := strings.ToUpper(symbol)
	if mapped, ok := symbolMap[upper]; ok {
		return mapped
	}
	return upper
}

// normalizeAction maps free-form alert actions onto BUY or SELL.
func normalizeAction(action string) (string, error) {
	if action == "" {
		return "", ErrInvalidAlert
	}

	upper := strings.ToUpper(action)
	switch {
	case strings.Contains(upper, "BUY") || strings.Contains(upper, "LONG") || upper == "ENTER":
		return models.SideBuy, nil
	case strings.Contains(upper, "SELL") || strings.Contains(upper, "SHORT") || upper == "EXIT":
		return models.SideSell, nil
	default:
		return "", fmt.Errorf("%w: unsupported action %q", ErrInvalidAlert, action)
	}
}

// parsePrice accepts numeric or string prices. Strings are stripped of
// everything but digits, dots and minus signs before parsing, so
// formatted values like "$45,000.00" work. The result must be a finite
// positive number.
func parsePrice(value any) (float64, error) {
	var price float64

	switch v := value.(type) {
	case float64:
		price = v
	case int:
		price = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: unparsable price %q", ErrInvalidAlert, v.String())
		}
		price = f
	case string:
		var b strings.Builder
		for _, r := range v {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				b.WriteRune(r)
			}
		}
		f, err := strconv.ParseFloat(b.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: unparsable price %q", ErrInvalidAlert, v)
		}
		price = f
	default:
		return 0, ErrInvalidAlert
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidAlert)
	}
	return price, nil
}
