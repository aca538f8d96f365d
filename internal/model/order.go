package model

// Side is the order direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderRequest describes a single order submission.
// A zero LimitPrice means market order, no limit.
type OrderRequest struct {
	ClientOrderID string  `json:"client_order_id"`
	Code          string  `json:"code"`
	Side          Side    `json:"side"`
	Qty           int     `json:"qty"`
	LimitPrice    float64 `json:"limit_price"`
}
