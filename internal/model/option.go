package model

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// Option represents one weekly KOSPI200 option contract.
type Option struct {
	Code   string     `json:"code"` // broker instrument code
	Name   string     `json:"name"`
	Type   OptionType `json:"type"`
	Strike float64    `json:"strike"` // index points
	Expiry time.Time  `json:"expiry"`
	Price  float64    `json:"price"` // last observed premium, index points
}
