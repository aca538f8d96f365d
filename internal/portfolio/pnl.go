package portfolio

import (
	"sync"
	"time"
)

// ClosedTrade is one realized round trip.
type ClosedTrade struct {
	Code     string    `json:"code"`
	Qty      int       `json:"qty"`
	Entry    float64   `json:"entry"`
	Exit     float64   `json:"exit"`
	PnL      float64   `json:"pnl"`
	Reason   string    `json:"reason"`
	ClosedAt time.Time `json:"closed_at"`
}

// PnLTracker accumulates realized P&L, with a daily counter the risk layer
// resets at each market open.
type PnLTracker struct {
	mu     sync.RWMutex
	closed []ClosedTrade
	total  float64
	daily  float64
}

// NewPnLTracker creates an empty tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{closed: make([]ClosedTrade, 0, 128)}
}

// Record books one realized trade.
func (t *PnLTracker) Record(trade ClosedTrade) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = append(t.closed, trade)
	t.total += trade.PnL
	t.daily += trade.PnL
}

// Total returns realized P&L since process start.
func (t *PnLTracker) Total() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Daily returns realized P&L since the last reset.
func (t *PnLTracker) Daily() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.daily
}

// ResetDaily clears the daily counter (called at market open).
func (t *PnLTracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.daily = 0
}

// Trades returns a snapshot of all closed trades.
func (t *PnLTracker) Trades() []ClosedTrade {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]ClosedTrade, len(t.closed))
	copy(cp, t.closed)
	return cp
}
