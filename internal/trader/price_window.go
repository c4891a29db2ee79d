package trader

// PriceWindow is a bounded FIFO of recent prices for one instrument,
// oldest first. It is not internally locked: the Agent owns it and all
// access happens on the trading-loop goroutine.
type PriceWindow struct {
	prices []float64
	bound  int
}

// NewPriceWindow creates an empty window with the given bound.
func NewPriceWindow(bound int) *PriceWindow {
	return &PriceWindow{
		prices: make([]float64, 0, bound),
		bound:  bound,
	}
}

// Append adds a price to the end of the window, evicting from the
// front once the bound is exceeded.
func (w *PriceWindow) Append(price float64) {
	w.prices = append(w.prices, price)
	for len(w.prices) > w.bound {
		w.prices = w.prices[1:]
	}
}

// Snapshot returns a copy of the current window contents, oldest first.
func (w *PriceWindow) Snapshot() []float64 {
	out := make([]float64, len(w.prices))
	copy(out, w.prices)
	return out
}

// Last returns the most recent price, or 0 for an empty window.
func (w *PriceWindow) Last() float64 {
	if len(w.prices) == 0 {
		return 0
	}
	return w.prices[len(w.prices)-1]
}

// Len returns the number of prices currently held.
func (w *PriceWindow) Len() int {
	return len(w.prices)
}
