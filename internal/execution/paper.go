package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"option-traderv1/internal/model"
)

// PaperFill records one simulated acceptance.
type PaperFill struct {
	Request  model.OrderRequest `json:"request"`
	Price    float64            `json:"price"` // after slippage
	FilledAt time.Time          `json:"filled_at"`
}

// PaperGateway simulates the broker order port without real submissions.
// Every order is acknowledged and recorded; slippage worsens the limit
// price by a fixed number of basis points.
type PaperGateway struct {
	mu          sync.RWMutex
	fills       []PaperFill
	slippageBps float64
	log         *slog.Logger
}

// NewPaperGateway creates a paper trading gateway.
func NewPaperGateway(slippageBps float64, log *slog.Logger) *PaperGateway {
	return &PaperGateway{
		fills:       make([]PaperFill, 0, 256),
		slippageBps: slippageBps,
		log:         log,
	}
}

// SubmitOrder acknowledges the order and books a simulated fill.
func (p *PaperGateway) SubmitOrder(ctx context.Context, req model.OrderRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	price := req.LimitPrice
	if price > 0 && p.slippageBps > 0 {
		slip := price * p.slippageBps / 10000
		if req.Side == model.Buy {
			price += slip
		} else {
			price -= slip
		}
	}

	p.mu.Lock()
	p.fills = append(p.fills, PaperFill{Request: req, Price: price, FilledAt: time.Now()})
	p.mu.Unlock()

	p.log.Info("paper fill",
		"code", req.Code, "side", string(req.Side), "qty", req.Qty,
		"limit", req.LimitPrice, "fill", price, "order_id", req.ClientOrderID)
	return nil
}

// Fills returns a snapshot of all simulated fills.
func (p *PaperGateway) Fills() []PaperFill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]PaperFill, len(p.fills))
	copy(cp, p.fills)
	return cp
}
