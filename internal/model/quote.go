package model

// Quote is a top-of-book snapshot used to seed the execution ladder.
// A zero bid or ask means that side is unavailable.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// QuoteUpdate is one streamed quote tick from the broker bridge.
type QuoteUpdate struct {
	Code string  `json:"code"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`
	TS   int64   `json:"ts"` // unix millis at the bridge
}
