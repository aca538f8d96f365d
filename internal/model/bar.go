package model

import (
	"encoding/json"
	"time"
)

// Bar represents one OHLC observation over a fixed interval (3 minutes here).
// Prices are option premia in index points (e.g. 0.25).
type Bar struct {
	TS    time.Time `json:"ts"` // bucket start time, strictly increasing
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	buf, _ := json.Marshal(b)
	return buf
}

// Series is a time-ordered bar sequence for a single instrument. It is
// replaced wholesale on every refresh; nothing appends to it incrementally.
type Series []Bar

// Closes extracts the close prices in series order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// LastClose returns the latest close price, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// Ordered reports whether timestamps are strictly increasing.
func (s Series) Ordered() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].TS.After(s[i-1].TS) {
			return false
		}
	}
	return true
}
