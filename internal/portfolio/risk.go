package portfolio

import "fmt"

// Limits defines configurable risk thresholds checked before every entry.
type Limits struct {
	MaxOpenPositions int     `yaml:"max_open_positions"` // concurrent positions across instruments
	MaxDailyLoss     float64 `yaml:"max_daily_loss"`     // realized loss cap per day, price units
	MaxOrderNotional float64 `yaml:"max_order_notional"` // premium * qty cap per entry
}

// DefaultLimits returns conservative defaults: three concurrent positions,
// as in the original risk settings.
func DefaultLimits() Limits {
	return Limits{
		MaxOpenPositions: 3,
		MaxDailyLoss:     5.0,
		MaxOrderNotional: 1.0,
	}
}

// Validate rejects malformed limits at startup.
func (l Limits) Validate() error {
	if l.MaxOpenPositions < 1 {
		return fmt.Errorf("risk: max open positions must be >= 1, got %d", l.MaxOpenPositions)
	}
	if l.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk: max daily loss must be positive, got %v", l.MaxDailyLoss)
	}
	if l.MaxOrderNotional <= 0 {
		return fmt.Errorf("risk: max order notional must be positive, got %v", l.MaxOrderNotional)
	}
	return nil
}

// RiskManager gates entries against the limits and the day's realized P&L.
type RiskManager struct {
	limits Limits
	book   *Book
	pnl    *PnLTracker
}

// NewRiskManager creates a RiskManager over the shared book and tracker.
func NewRiskManager(limits Limits, book *Book, pnl *PnLTracker) *RiskManager {
	return &RiskManager{limits: limits, book: book, pnl: pnl}
}

// CanEnter checks whether a new entry at price*qty is allowed.
// Returns false with a reason when a limit would be violated.
func (rm *RiskManager) CanEnter(code string, price float64, qty int) (bool, string) {
	if rm.book.Get(code) == nil && rm.book.OpenCount() >= rm.limits.MaxOpenPositions {
		return false, "max open positions reached"
	}
	if notional := price * float64(qty); notional > rm.limits.MaxOrderNotional {
		return false, fmt.Sprintf("order notional %.2f exceeds limit %.2f", notional, rm.limits.MaxOrderNotional)
	}
	if rm.pnl.Daily() <= -rm.limits.MaxDailyLoss {
		return false, "max daily loss reached"
	}
	return true, ""
}

// ResetDaily clears the daily loss counter (called at market open).
func (rm *RiskManager) ResetDaily() {
	rm.pnl.ResetDaily()
}
