package strategy

import (
	"testing"
	"time"

	"option-traderv1/internal/model"
)

func flatSeries(n int, close float64) model.Series {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := make(model.Series, n)
	for i := range s {
		s[i] = model.Bar{
			TS:    start.Add(time.Duration(i) * 3 * time.Minute),
			Open:  close,
			High:  close,
			Low:   close,
			Close: close,
		}
	}
	return s
}

func newSqueeze(t *testing.T) *Squeeze {
	t.Helper()
	s, err := NewSqueeze(DefaultParams())
	if err != nil {
		t.Fatalf("NewSqueeze: %v", err)
	}
	return s
}

func TestEntry_FlatSqueezeInBand(t *testing.T) {
	s := newSqueeze(t)
	// 150 flat bars at 0.20: convergence 0, bandwidth 0, price in band.
	sig := s.Evaluate("201W4270", flatSeries(150, 0.20), 0.20, nil)
	if sig.Action != ActionBuy {
		t.Fatalf("expected BUY, got %s (%s %s)", sig.Action, sig.Reason, sig.Detail)
	}
	if sig.Reason != ReasonSqueezeEntry {
		t.Errorf("expected SQUEEZE_ENTRY reason, got %s", sig.Reason)
	}
}

func TestEntry_PriceBandGateOverridesSetup(t *testing.T) {
	s := newSqueeze(t)
	series := flatSeries(150, 0.50) // squeeze conditions hold, premium too rich
	sig := s.Evaluate("201W4270", series, 0.50, nil)
	if sig.Action != ActionHold {
		t.Fatalf("expected HOLD, got %s", sig.Action)
	}
	if sig.Reason != ReasonPriceBand {
		t.Errorf("expected PRICE_BAND reason, got %s", sig.Reason)
	}

	sig = s.Evaluate("201W4270", flatSeries(150, 0.05), 0.05, nil)
	if sig.Action != ActionHold || sig.Reason != ReasonPriceBand {
		t.Errorf("expected HOLD/PRICE_BAND below band, got %s/%s", sig.Action, sig.Reason)
	}
}

func TestEntry_InsufficientDataHolds(t *testing.T) {
	s := newSqueeze(t)
	sig := s.Evaluate("201W4270", flatSeries(59, 0.20), 0.20, nil)
	if sig.Action != ActionHold || sig.Reason != ReasonInsufficientData {
		t.Errorf("expected HOLD/INSUFFICIENT_DATA, got %s/%s", sig.Action, sig.Reason)
	}
}

func TestEntry_NoSetupWhenAveragesDiverge(t *testing.T) {
	s := newSqueeze(t)
	// Strong ramp: averages spread far apart, convergence gate fails.
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	series := make(model.Series, 150)
	for i := range series {
		c := 0.10 + float64(i)*0.01
		series[i] = model.Bar{TS: start.Add(time.Duration(i) * 3 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	sig := s.Evaluate("201W4270", series, series.LastClose(), nil)
	if sig.Action != ActionHold || sig.Reason != ReasonNoSetup {
		t.Errorf("expected HOLD/NO_SETUP, got %s/%s", sig.Action, sig.Reason)
	}
}

func TestExit_StopLoss(t *testing.T) {
	s := newSqueeze(t)
	pos := &model.Position{Code: "201W4270", EntryPrice: 0.20, Qty: 1}
	// 15% drop from entry.
	sig := s.Evaluate("201W4270", flatSeries(150, 0.17), 0.17, pos)
	if sig.Action != ActionSell {
		t.Fatalf("expected SELL, got %s (%s)", sig.Action, sig.Reason)
	}
	if sig.Reason != ReasonStopLoss {
		t.Errorf("expected STOP_LOSS reason, got %s", sig.Reason)
	}
}

func TestExit_StopLossBeatsTrendExit(t *testing.T) {
	s := newSqueeze(t)
	pos := &model.Position{Code: "201W4270", EntryPrice: 0.20, Qty: 1}
	// Closes collapse so that both the stop and the MA cross fire; the
	// stop-loss reason must win.
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	series := make(model.Series, 150)
	for i := range series {
		c := 0.20
		if i >= 149 {
			c = 0.15 // 25% below entry and below the 10-bar MA
		}
		series[i] = model.Bar{TS: start.Add(time.Duration(i) * 3 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	sig := s.Evaluate("201W4270", series, 0.15, pos)
	if sig.Action != ActionSell || sig.Reason != ReasonStopLoss {
		t.Errorf("expected SELL/STOP_LOSS, got %s/%s", sig.Action, sig.Reason)
	}
}

func TestExit_TrendCross(t *testing.T) {
	s := newSqueeze(t)
	pos := &model.Position{Code: "201W4270", EntryPrice: 0.20, Qty: 1}
	// Mild dip: above the stop but the last close sits below the 10-bar MA.
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	series := make(model.Series, 150)
	for i := range series {
		c := 0.20
		if i >= 149 {
			c = 0.19
		}
		series[i] = model.Bar{TS: start.Add(time.Duration(i) * 3 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	sig := s.Evaluate("201W4270", series, 0.19, pos)
	if sig.Action != ActionSell {
		t.Fatalf("expected SELL, got %s (%s %s)", sig.Action, sig.Reason, sig.Detail)
	}
	if sig.Reason != ReasonTrendExit {
		t.Errorf("expected TREND_EXIT reason, got %s", sig.Reason)
	}
}

func TestExit_HoldWhileAboveStopAndMA(t *testing.T) {
	s := newSqueeze(t)
	pos := &model.Position{Code: "201W4270", EntryPrice: 0.20, Qty: 1}
	sig := s.Evaluate("201W4270", flatSeries(150, 0.21), 0.21, pos)
	if sig.Action != ActionHold || sig.Reason != ReasonHolding {
		t.Errorf("expected HOLD/HOLDING, got %s/%s", sig.Action, sig.Reason)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	s := newSqueeze(t)
	series := flatSeries(150, 0.20)
	pos := &model.Position{Code: "201W4270", EntryPrice: 0.20, EntryTime: time.Now(), Qty: 2, LastPrice: 0.20}
	before := *pos

	first := s.Evaluate("201W4270", series, 0.20, pos)
	second := s.Evaluate("201W4270", series, 0.20, pos)
	if first != second {
		t.Errorf("expected identical signals, got %+v vs %+v", first, second)
	}
	if *pos != before {
		t.Errorf("Evaluate mutated the position: %+v vs %+v", *pos, before)
	}
}

func TestParams_Validate(t *testing.T) {
	bad := []func(*Params){
		func(p *Params) { p.Indicator.ShortPeriod = 20 },               // short >= mid
		func(p *Params) { p.Indicator.MidPeriod = 60 },                 // mid >= long
		func(p *Params) { p.Indicator.BandPeriod = 1 },                 //
		func(p *Params) { p.Indicator.BandMult = 0 },                   //
		func(p *Params) { p.Indicator.Lookback = 0 },                   //
		func(p *Params) { p.ConvergenceRatio = 0 },                     //
		func(p *Params) { p.SqueezeTolerance = 0.9 },                   //
		func(p *Params) { p.MinPrice = 0.3 },                           // min >= max
		func(p *Params) { p.MinPrice, p.MaxPrice = 0.5, 0.3 },          //
		func(p *Params) { p.StopLossRate = 0 },                         //
		func(p *Params) { p.StopLossRate = 1.5 },                       //
		func(p *Params) { p.ExitMAPeriod = 0 },                         //
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
