package model

import "time"

// Position represents one open option position. At most one Position exists
// per instrument at any time; it is created by a filled BUY and destroyed by
// a filled SELL.
type Position struct {
	Code       string    `json:"code"`
	EntryPrice float64   `json:"entry_price"` // > 0
	EntryTime  time.Time `json:"entry_time"`
	Qty        int       `json:"qty"` // > 0
	LastPrice  float64   `json:"last_price"`
}

// UnrealizedPnL computes unrealized profit/loss at the latest known price.
func (p *Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.EntryPrice) * float64(p.Qty)
}
