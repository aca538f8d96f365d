package strategy

import (
	"errors"
	"fmt"

	"option-traderv1/internal/indicator"
	"option-traderv1/internal/model"
)

// Params configures the squeeze strategy.
type Params struct {
	Indicator indicator.Params

	// Entry: convergence must not exceed price * ConvergenceRatio, and the
	// current bandwidth must not exceed historicalMin * SqueezeTolerance.
	ConvergenceRatio float64
	SqueezeTolerance float64

	// Tradable premium band; entries outside it are rejected outright.
	MinPrice float64
	MaxPrice float64

	// Exit: stop out at StopLossRate loss from entry, otherwise exit when
	// the close crosses below the ExitMAPeriod-bar moving average.
	StopLossRate float64
	ExitMAPeriod int
}

// DefaultParams returns the production defaults: 1% convergence threshold,
// 110% squeeze tolerance, 0.1–0.3 premium band, 10% stop, 10-bar exit MA.
func DefaultParams() Params {
	return Params{
		Indicator:        indicator.DefaultParams(),
		ConvergenceRatio: 0.01,
		SqueezeTolerance: 1.10,
		MinPrice:         0.1,
		MaxPrice:         0.3,
		StopLossRate:     0.10,
		ExitMAPeriod:     10,
	}
}

// Validate rejects malformed parameters. Called once at startup; a failure
// here is fatal before the loop ever runs.
func (p Params) Validate() error {
	i := p.Indicator
	if i.ShortPeriod <= 0 || i.ShortPeriod >= i.MidPeriod || i.MidPeriod >= i.LongPeriod {
		return fmt.Errorf("strategy: MA periods must satisfy 0 < short < mid < long, got %d/%d/%d",
			i.ShortPeriod, i.MidPeriod, i.LongPeriod)
	}
	if i.BandPeriod < 2 {
		return fmt.Errorf("strategy: band period must be >= 2, got %d", i.BandPeriod)
	}
	if i.BandMult <= 0 {
		return fmt.Errorf("strategy: band multiplier must be positive, got %v", i.BandMult)
	}
	if i.Lookback < 1 {
		return fmt.Errorf("strategy: bandwidth lookback must be >= 1, got %d", i.Lookback)
	}
	if p.ConvergenceRatio <= 0 {
		return fmt.Errorf("strategy: convergence ratio must be positive, got %v", p.ConvergenceRatio)
	}
	if p.SqueezeTolerance < 1 {
		return fmt.Errorf("strategy: squeeze tolerance must be >= 1, got %v", p.SqueezeTolerance)
	}
	if p.MinPrice < 0 || p.MinPrice >= p.MaxPrice {
		return fmt.Errorf("strategy: price band must satisfy 0 <= min < max, got [%v, %v]",
			p.MinPrice, p.MaxPrice)
	}
	if p.StopLossRate <= 0 || p.StopLossRate >= 1 {
		return fmt.Errorf("strategy: stop loss rate must be in (0, 1), got %v", p.StopLossRate)
	}
	if p.ExitMAPeriod < 1 {
		return fmt.Errorf("strategy: exit MA period must be >= 1, got %d", p.ExitMAPeriod)
	}
	return nil
}

// Squeeze is the low-volatility entry / stop-or-trend exit state machine.
// Position state lives in the caller's book; Squeeze itself is stateless.
type Squeeze struct {
	params Params
}

// NewSqueeze creates the strategy with validated parameters.
func NewSqueeze(params Params) (*Squeeze, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Squeeze{params: params}, nil
}

// Params returns the strategy configuration.
func (s *Squeeze) Params() Params { return s.params }

// Evaluate decides the next action for one instrument. pos is nil when flat.
// The decision depends only on the arguments; nothing is mutated.
func (s *Squeeze) Evaluate(code string, series model.Series, price float64, pos *model.Position) Signal {
	if pos == nil {
		return s.evaluateEntry(code, series, price)
	}
	return s.evaluateExit(code, series, price, pos)
}

func (s *Squeeze) evaluateEntry(code string, series model.Series, price float64) Signal {
	snap, err := indicator.Compute(series, s.params.Indicator)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			return hold(code, price, ReasonInsufficientData,
				fmt.Sprintf("%d bars, need %d", len(series), s.params.Indicator.MinBars()))
		}
		return hold(code, price, ReasonInsufficientData, err.Error())
	}

	clustered := snap.Convergence <= price*s.params.ConvergenceRatio
	squeezed := snap.Bandwidth <= snap.HistoricalMinWidth*s.params.SqueezeTolerance
	if !clustered || !squeezed {
		return hold(code, price, ReasonNoSetup, fmt.Sprintf(
			"convergence=%.4f threshold=%.4f bandwidth=%.4f histMin=%.4f",
			snap.Convergence, price*s.params.ConvergenceRatio,
			snap.Bandwidth, snap.HistoricalMinWidth))
	}

	// The band gate overrides the setup: a squeeze on an untradable premium
	// is still a HOLD.
	if price < s.params.MinPrice || price > s.params.MaxPrice {
		return hold(code, price, ReasonPriceBand, fmt.Sprintf(
			"premium %.2f outside [%.2f, %.2f]", price, s.params.MinPrice, s.params.MaxPrice))
	}

	return Signal{
		Action: ActionBuy,
		Reason: ReasonSqueezeEntry,
		Code:   code,
		Price:  price,
		Detail: fmt.Sprintf("convergence=%.4f bandwidth=%.4f histMin=%.4f",
			snap.Convergence, snap.Bandwidth, snap.HistoricalMinWidth),
	}
}

func (s *Squeeze) evaluateExit(code string, series model.Series, price float64, pos *model.Position) Signal {
	// Stop-loss has priority over the trend exit.
	if pos.EntryPrice > 0 {
		lossRate := (pos.EntryPrice - price) / pos.EntryPrice
		if lossRate >= s.params.StopLossRate {
			return Signal{
				Action: ActionSell,
				Reason: ReasonStopLoss,
				Code:   code,
				Price:  price,
				Detail: fmt.Sprintf("loss %.1f%% from entry %.2f", lossRate*100, pos.EntryPrice),
			}
		}
	}

	exitMA, err := indicator.SMA(series.Closes(), s.params.ExitMAPeriod)
	if err != nil {
		return hold(code, price, ReasonInsufficientData,
			fmt.Sprintf("%d bars, exit MA needs %d", len(series), s.params.ExitMAPeriod))
	}
	if series.LastClose() < exitMA {
		ret := 0.0
		if pos.EntryPrice > 0 {
			ret = (price - pos.EntryPrice) / pos.EntryPrice * 100
		}
		return Signal{
			Action: ActionSell,
			Reason: ReasonTrendExit,
			Code:   code,
			Price:  price,
			Detail: fmt.Sprintf("close %.2f below MA%d %.4f, return %.1f%%",
				series.LastClose(), s.params.ExitMAPeriod, exitMA, ret),
		}
	}

	return hold(code, price, ReasonHolding, "")
}
