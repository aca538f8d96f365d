package model

import (
	"context"
	"errors"
)

// ErrUnavailable signals that market data could not be obtained this cycle
// (fetch failure or a zero/empty response). Callers skip the instrument and
// retry on the next cycle.
var ErrUnavailable = errors.New("market data unavailable")

// ── Collaborator Port Interfaces ──
// These decouple the decision-and-execution core from broker connectivity.
// Implementations: pkg/bridge (live) and internal/execution (paper).

// MarketData retrieves bars, prices, and quotes for an instrument.
type MarketData interface {
	// FetchSeries returns the most recent barCount bars, oldest first.
	FetchSeries(ctx context.Context, code string, barCount int) (Series, error)

	// FetchPrice returns the last trade price. 0 means unavailable.
	FetchPrice(ctx context.Context, code string) (float64, error)

	// FetchQuote returns a top-of-book snapshot.
	FetchQuote(ctx context.Context, code string) (Quote, error)
}

// OrderGateway submits orders to the broker. A successful return means the
// submission was acknowledged; the gateway guarantees any previous order for
// the same instrument is void before accepting the next one.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) error
}

// Sizer decides order quantity for an entry at the given premium.
// The core treats the policy as opaque.
type Sizer interface {
	Quantity(price float64) int
}
