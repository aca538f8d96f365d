// Package execution turns strategy signals into broker orders.
//
// The smart executor walks a limit-price ladder against the current book,
// trading price for fill probability across a bounded number of attempts.
// Fills are persisted to a SQLite journal; a paper gateway simulates the
// broker for dry runs.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"option-traderv1/internal/logger"
	"option-traderv1/internal/model"
)

// Status is the terminal state of one Execute call.
type Status string

const (
	StatusFilled    Status = "FILLED"
	StatusExhausted Status = "EXHAUSTED"
)

// Result reports how an execution ended.
type Result struct {
	Status   Status  `json:"status"`
	Price    float64 `json:"price"`    // limit price of the acknowledged attempt
	Attempts int     `json:"attempts"` // attempts consumed, including the acknowledged one
	OrderID  string  `json:"order_id"` // client order ID of the acknowledged attempt
}

// Filled reports whether the order went through.
func (r Result) Filled() bool { return r.Status == StatusFilled }

// Config bounds the ladder.
type Config struct {
	MaxAttempts int           // ladder length (default 5)
	Step        float64       // price concession per attempt, price units (default 5)
	Delay       time.Duration // wait between attempts and before assuming fill
}

// DefaultConfig mirrors the production settings.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Step: 5, Delay: 2 * time.Second}
}

// Validate rejects malformed execution parameters at startup.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("execution: max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.Step < 0 {
		return fmt.Errorf("execution: step must be >= 0, got %v", c.Step)
	}
	if c.Delay < 0 {
		return fmt.Errorf("execution: delay must be >= 0, got %v", c.Delay)
	}
	return nil
}

// Ladder returns the candidate limit prices for a side seeded at base:
// BUY walks up toward the sellers, SELL walks down toward the buyers. Each
// step is a strictly less favorable price than the last.
func (c Config) Ladder(side model.Side, base float64) []float64 {
	prices := make([]float64, c.MaxAttempts)
	for i := range prices {
		if side == model.Buy {
			prices[i] = base + c.Step*float64(i)
		} else {
			prices[i] = base - c.Step*float64(i)
		}
	}
	return prices
}

// Smart is the ladder executor. It is stateless between invocations; every
// Execute starts from a fresh quote.
type Smart struct {
	md  model.MarketData
	gw  model.OrderGateway
	cfg Config
	log *slog.Logger
}

// NewSmart builds an executor over the given market-data and order ports.
func NewSmart(md model.MarketData, gw model.OrderGateway, cfg Config, log *slog.Logger) (*Smart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Smart{md: md, gw: gw, cfg: cfg, log: log}, nil
}

// Execute submits up to MaxAttempts limit orders for the side and quantity,
// conceding Step price units per attempt. The base price is the ask for a
// BUY and the bid for a SELL, falling back to the last trade price when the
// book side is unavailable.
//
// An acknowledged submission is treated as a fill after the inter-attempt
// delay; the gateway guarantees any prior attempt is void before the next
// is placed, and no independent execution report is consulted. A rejected
// submission advances the ladder. Exhausting the ladder is a Result, not an
// error; only unavailable market data or context cancellation are errors.
func (s *Smart) Execute(ctx context.Context, code string, side model.Side, qty int) (Result, error) {
	quote, err := s.md.FetchQuote(ctx, code)
	if err != nil {
		return Result{}, fmt.Errorf("execute %s %s: quote: %w", side, code, err)
	}
	last, err := s.md.FetchPrice(ctx, code)
	if err != nil {
		s.log.Warn("last price unavailable, relying on quote",
			append([]any{"code", code, "err", err.Error()}, logger.Trace(ctx)...)...)
		last = 0
	}

	base := quote.Ask
	if side == model.Sell {
		base = quote.Bid
	}
	if base <= 0 {
		base = last
	}
	if base <= 0 {
		return Result{}, fmt.Errorf("execute %s %s: no base price: %w", side, code, model.ErrUnavailable)
	}

	for attempt, price := range s.cfg.Ladder(side, base) {
		req := model.OrderRequest{
			ClientOrderID: uuid.NewString(),
			Code:          code,
			Side:          side,
			Qty:           qty,
			LimitPrice:    price,
		}

		err := s.gw.SubmitOrder(ctx, req)
		if err != nil {
			s.log.Warn("order submission rejected",
				append([]any{
					"code", code, "side", string(side), "attempt", attempt + 1,
					"price", price, "err", err.Error(),
				}, logger.Trace(ctx)...)...)
			if werr := s.wait(ctx); werr != nil {
				return Result{}, werr
			}
			continue
		}

		// Let the resting order work before assuming it filled.
		if werr := s.wait(ctx); werr != nil {
			return Result{}, werr
		}

		s.log.Info("order acknowledged",
			append([]any{
				"code", code, "side", string(side), "attempt", attempt + 1,
				"price", price, "qty", qty, "order_id", req.ClientOrderID,
			}, logger.Trace(ctx)...)...)
		return Result{Status: StatusFilled, Price: price, Attempts: attempt + 1, OrderID: req.ClientOrderID}, nil
	}

	s.log.Warn("order ladder exhausted",
		append([]any{"code", code, "side", string(side), "attempts", s.cfg.MaxAttempts}, logger.Trace(ctx)...)...)
	return Result{Status: StatusExhausted, Attempts: s.cfg.MaxAttempts}, nil
}

// wait sleeps for the inter-attempt delay, observing cancellation.
func (s *Smart) wait(ctx context.Context) error {
	if s.cfg.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
