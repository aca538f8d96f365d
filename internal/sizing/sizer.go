// Package sizing provides order-sizing policies behind the model.Sizer port.
package sizing

import "fmt"

// Fixed always trades the same number of contracts.
type Fixed struct {
	Lots int
}

// NewFixed creates a fixed-lot sizer. The original strategy trades a single
// contract per entry.
func NewFixed(lots int) (*Fixed, error) {
	if lots < 1 {
		return nil, fmt.Errorf("sizing: lots must be >= 1, got %d", lots)
	}
	return &Fixed{Lots: lots}, nil
}

// Quantity returns the configured lot count regardless of premium.
func (f *Fixed) Quantity(price float64) int { return f.Lots }

// Budget spends a fraction of the account per entry.
type Budget struct {
	Equity   float64 // account equity, price units
	Fraction float64 // fraction of equity per position, (0, 1]
	MaxLots  int
}

// NewBudget creates a budget-fraction sizer.
func NewBudget(equity, fraction float64, maxLots int) (*Budget, error) {
	if equity <= 0 {
		return nil, fmt.Errorf("sizing: equity must be positive, got %v", equity)
	}
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("sizing: fraction must be in (0, 1], got %v", fraction)
	}
	if maxLots < 1 {
		return nil, fmt.Errorf("sizing: max lots must be >= 1, got %d", maxLots)
	}
	return &Budget{Equity: equity, Fraction: fraction, MaxLots: maxLots}, nil
}

// Quantity returns floor(equity*fraction / price), clamped to [1, MaxLots].
// A non-positive premium sizes to a single lot.
func (b *Budget) Quantity(price float64) int {
	if price <= 0 {
		return 1
	}
	lots := int(b.Equity * b.Fraction / price)
	if lots < 1 {
		return 1
	}
	if lots > b.MaxLots {
		return b.MaxLots
	}
	return lots
}
