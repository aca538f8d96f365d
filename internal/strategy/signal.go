// Package strategy turns indicator state and the current premium into
// trading signals for a single option at a time.
//
// Evaluate is pure: calling it twice with the same inputs yields the same
// decision and mutates nothing. A position changes only when the execution
// layer reports a fill, never on signal generation, so a failed order can
// never leave a phantom position behind.
package strategy

import "fmt"

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Reason classifies why a signal was emitted.
type Reason string

const (
	ReasonSqueezeEntry Reason = "SQUEEZE_ENTRY" // averages clustered, bandwidth near historic low
	ReasonStopLoss     Reason = "STOP_LOSS"     // loss from entry reached the stop rate
	ReasonTrendExit    Reason = "TREND_EXIT"    // close fell below the exit moving average

	ReasonInsufficientData Reason = "INSUFFICIENT_DATA"
	ReasonNoSetup          Reason = "NO_SETUP"
	ReasonPriceBand        Reason = "PRICE_BAND" // setup held but premium outside the tradable band
	ReasonHolding          Reason = "HOLDING"
)

// Signal is one evaluation outcome.
type Signal struct {
	Action Action  `json:"action"`
	Reason Reason  `json:"reason"`
	Code   string  `json:"code"`
	Price  float64 `json:"price"` // premium the decision was made at
	Detail string  `json:"detail,omitempty"`
}

func hold(code string, price float64, reason Reason, detail string) Signal {
	return Signal{Action: ActionHold, Reason: reason, Code: code, Price: price, Detail: detail}
}

func (s Signal) String() string {
	return fmt.Sprintf("%s %s (%s) @ %.2f", s.Action, s.Code, s.Reason, s.Price)
}
