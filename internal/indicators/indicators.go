package indicators

// Pure technical-indicator math over an ordered price series (oldest
// first). All functions are deterministic and degrade to a defined
// neutral value instead of failing when the series is too short, so
// the trading loop never has to special-case a warm-up phase.

// SMA returns the simple moving average of the last period prices.
// With fewer than period prices it returns the last price, or 0 for
// an empty series.
func SMA(prices []float64, period int) float64 {
	if len(prices) < period {
		if len(prices) == 0 {
			return 0
		}
		return prices[len(prices)-1]
	}

	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// RSI returns the relative strength index over the last period price
// changes. With fewer than period+1 prices it returns the neutral
// value 50. A series with no losses over the averaged deltas returns
// 100 rather than dividing by zero.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	var avgGain, avgLoss float64
	for _, g := range gains[len(gains)-period:] {
		avgGain += g
	}
	for _, l := range losses[len(losses)-period:] {
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA returns the exponential moving average seeded with the simple
// mean of the first period prices and smoothed over the remainder.
// With fewer than period prices it returns the last price, or 0 for
// an empty series.
func EMA(prices []float64, period int) float64 {
	if len(prices) < period {
		if len(prices) == 0 {
			return 0
		}
		return prices[len(prices)-1]
	}

	multiplier := 2.0 / float64(period+1)

	ema := 0.0
	for _, p := range prices[:period] {
		ema += p
	}
	ema /= float64(period)

	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
	}
	return ema
}

// MACDResult holds the MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD returns EMA(12)-EMA(26) as the MACD line. The signal line is
// EMA(9) over the last 9 raw prices, not over the MACD series; this
// deviates from the textbook definition but is kept deliberately, as
// the signal consumers are calibrated against it.
func MACD(prices []float64) MACDResult {
	ema12 := EMA(prices, 12)
	ema26 := EMA(prices, 26)
	macd := ema12 - ema26

	tail := prices
	if len(tail) > 9 {
		tail = tail[len(tail)-9:]
	}
	signal := EMA(tail, 9)

	return MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}
