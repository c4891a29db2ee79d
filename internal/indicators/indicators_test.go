package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantSeries(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestSMA(t *testing.T) {
	testCases := []struct {
		name     string
		prices   []float64
		period   int
		expected float64
	}{
		{
			name:     "Simple average over full period",
			prices:   []float64{1, 2, 3, 4, 5},
			period:   5,
			expected: 3,
		},
		{
			name:     "Only last period values are used",
			prices:   []float64{100, 100, 2, 4, 6},
			period:   3,
			expected: 4,
		},
		{
			name:     "Short series returns last price",
			prices:   []float64{10, 20},
			period:   5,
			expected: 20,
		},
		{
			name:     "Empty series returns zero",
			prices:   nil,
			period:   5,
			expected: 0,
		},
		{
			name:     "Constant series of 100 returns the constant",
			prices:   constantSeries(42000, 100),
			period:   20,
			expected: 42000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, SMA(tc.prices, tc.period), 1e-9)
		})
	}
}

func TestEMA(t *testing.T) {
	t.Run("Short series returns last price", func(t *testing.T) {
		assert.Equal(t, 20.0, EMA([]float64{10, 20}, 5))
	})

	t.Run("Empty series returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, EMA(nil, 5))
	})

	t.Run("Constant series returns the constant", func(t *testing.T) {
		assert.InDelta(t, 42000.0, EMA(constantSeries(42000, 100), 12), 1e-9)
	})

	t.Run("Exact period equals the simple mean", func(t *testing.T) {
		prices := []float64{1, 2, 3, 4, 5}
		assert.InDelta(t, SMA(prices, 5), EMA(prices, 5), 1e-9)
	})

	t.Run("Smoothing pulls toward recent prices", func(t *testing.T) {
		prices := []float64{10, 10, 10, 10, 10, 20}
		ema := EMA(prices, 5)
		// seed=10, multiplier=1/3 -> 10 + (20-10)/3
		assert.InDelta(t, 13.333333333, ema, 1e-6)
	})
}

func TestRSI(t *testing.T) {
	t.Run("Short series is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))
	})

	t.Run("Strictly increasing series is maximal", func(t *testing.T) {
		prices := make([]float64, 30)
		for i := range prices {
			prices[i] = float64(100 + i)
		}
		assert.Equal(t, 100.0, RSI(prices, 14))
	})

	t.Run("Strictly decreasing series is minimal", func(t *testing.T) {
		prices := make([]float64, 30)
		for i := range prices {
			prices[i] = float64(100 - i)
		}
		assert.InDelta(t, 0.0, RSI(prices, 14), 1e-9)
	})

	t.Run("Flat series counts as no losses", func(t *testing.T) {
		assert.Equal(t, 100.0, RSI(constantSeries(5, 20), 14))
	})

	t.Run("Balanced gains and losses is neutral", func(t *testing.T) {
		// Alternating +1/-1: avgGain == avgLoss -> RSI 50.
		prices := make([]float64, 0, 31)
		v := 100.0
		prices = append(prices, v)
		for i := 0; i < 30; i++ {
			if i%2 == 0 {
				v++
			} else {
				v--
			}
			prices = append(prices, v)
		}
		assert.InDelta(t, 50.0, RSI(prices, 14), 1e-9)
	})
}

func TestMACD(t *testing.T) {
	t.Run("Constant series is flat", func(t *testing.T) {
		res := MACD(constantSeries(42000, 100))
		assert.InDelta(t, 0.0, res.MACD, 1e-6)
		assert.InDelta(t, 42000.0, res.Signal, 1e-6)
		assert.InDelta(t, res.MACD-res.Signal, res.Histogram, 1e-9)
	})

	t.Run("Signal is the EMA of the last 9 raw prices", func(t *testing.T) {
		prices := make([]float64, 40)
		for i := range prices {
			prices[i] = float64(1000 + i*3)
		}
		res := MACD(prices)
		assert.InDelta(t, EMA(prices[len(prices)-9:], 9), res.Signal, 1e-9)
		assert.InDelta(t, EMA(prices, 12)-EMA(prices, 26), res.MACD, 1e-9)
	})

	t.Run("Deterministic for identical input", func(t *testing.T) {
		prices := []float64{5, 8, 13, 21, 34, 55, 89, 144, 233, 377, 610, 987, 1597}
		assert.Equal(t, MACD(prices), MACD(prices))
	})
}
