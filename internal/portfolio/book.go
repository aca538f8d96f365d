// Package portfolio tracks open option positions, realized P&L, and risk
// limits.
//
// The Book is the only persistent mutable state shared across the trading
// loop and the monitoring path. It is updated only after an execution result
// is known, never speculatively, and monitoring reads work on snapshots.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"option-traderv1/internal/model"
)

// Book holds at most one open position per instrument.
type Book struct {
	mu        sync.RWMutex
	positions map[string]*model.Position // key = option code
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{positions: make(map[string]*model.Position)}
}

// Get returns a copy of the position for code, or nil when flat.
func (b *Book) Get(code string) *model.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.positions[code]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Open books a new position after a filled BUY. Opening over an existing
// position is a bug in the caller and returns an error.
func (b *Book) Open(code string, entryPrice float64, qty int, at time.Time) error {
	if entryPrice <= 0 || qty <= 0 {
		return fmt.Errorf("portfolio: invalid entry price=%v qty=%d for %s", entryPrice, qty, code)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.positions[code]; exists {
		return fmt.Errorf("portfolio: position already open for %s", code)
	}
	b.positions[code] = &model.Position{
		Code:       code,
		EntryPrice: entryPrice,
		EntryTime:  at,
		Qty:        qty,
		LastPrice:  entryPrice,
	}
	return nil
}

// Close removes the position after a filled SELL and returns the realized
// P&L at exitPrice.
func (b *Book) Close(code string, exitPrice float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[code]
	if !ok {
		return 0, fmt.Errorf("portfolio: no open position for %s", code)
	}
	delete(b.positions, code)
	return (exitPrice - p.EntryPrice) * float64(p.Qty), nil
}

// MarkPrice updates the latest observed premium for an open position.
func (b *Book) MarkPrice(code string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.positions[code]; ok && price > 0 {
		p.LastPrice = price
	}
}

// Snapshot returns copies of all open positions.
func (b *Book) Snapshot() []model.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, *p)
	}
	return out
}

// OpenCount returns the number of open positions.
func (b *Book) OpenCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

// TotalUnrealizedPnL sums unrealized P&L across all open positions.
func (b *Book) TotalUnrealizedPnL() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, p := range b.positions {
		total += p.UnrealizedPnL()
	}
	return total
}
