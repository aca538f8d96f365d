// Package indicator provides pure windowed statistics over bar series.
//
// Every function operates on a time-ordered close-price slice and has no
// side effects or retained state; the caller replaces its series wholesale
// each refresh. Functions that need more history than they are given return
// ErrInsufficientData rather than a zero value.
package indicator

import (
	"errors"

	"option-traderv1/internal/model"
)

// ErrInsufficientData means the series is too short for the requested window.
var ErrInsufficientData = errors.New("indicator: insufficient data")

// Params holds the windows for one snapshot computation.
type Params struct {
	ShortPeriod int     // short SMA window
	MidPeriod   int     // mid SMA window
	LongPeriod  int     // long SMA window
	BandPeriod  int     // Bollinger SMA/stddev window
	BandMult    float64 // stddev multiplier
	Lookback    int     // historical minimum bandwidth window
}

// DefaultParams mirrors the strategy's production settings: 5/20/60 SMAs,
// 20-bar ±2σ bands, 100-evaluation bandwidth lookback.
func DefaultParams() Params {
	return Params{
		ShortPeriod: 5,
		MidPeriod:   20,
		LongPeriod:  60,
		BandPeriod:  20,
		BandMult:    2,
		Lookback:    100,
	}
}

// MinBars returns the series length required before a snapshot is defined.
func (p Params) MinBars() int {
	if p.LongPeriod > p.Lookback {
		return p.LongPeriod
	}
	return p.Lookback
}

// Snapshot is the derived, immutable indicator state for one evaluation.
type Snapshot struct {
	Convergence        float64 // spread across the three trailing SMAs
	Bandwidth          float64 // current Bollinger bandwidth
	HistoricalMinWidth float64 // rolling minimum bandwidth over Lookback
}

// Compute derives a Snapshot from a bar series. It requires at least
// max(LongPeriod, Lookback) bars, else ErrInsufficientData.
func Compute(series model.Series, p Params) (Snapshot, error) {
	if len(series) < p.MinBars() {
		return Snapshot{}, ErrInsufficientData
	}
	closes := series.Closes()

	conv, err := Convergence(closes, p.ShortPeriod, p.MidPeriod, p.LongPeriod)
	if err != nil {
		return Snapshot{}, err
	}

	widths, err := WidthSeries(closes, p.BandPeriod, p.BandMult)
	if err != nil {
		return Snapshot{}, err
	}
	histMin, err := MinTrailing(widths, p.Lookback)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Convergence:        conv,
		Bandwidth:          widths[len(widths)-1],
		HistoricalMinWidth: histMin,
	}, nil
}
