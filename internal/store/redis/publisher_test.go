package redis

import (
	"context"
	"testing"

	"option-traderv1/internal/model"
)

// A nil Publisher must be safe to call everywhere: the engine runs
// without Redis when no address is configured.
func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	ctx := context.Background()

	p.PublishSignal(ctx, SignalEvent{Code: "201W4270", Action: "BUY"})
	p.PublishFill(ctx, FillEvent{OrderID: "x", Code: "201W4270"})
	p.PublishSummary(ctx, Summary{OpenPositions: 1}, []model.Position{{Code: "201W4270"}})

	if p.Client() != nil {
		t.Error("nil publisher should have nil client")
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil publisher Close: %v", err)
	}
}
