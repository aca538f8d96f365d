package indicator

import (
	"math"
	"testing"
	"time"

	"option-traderv1/internal/model"
)

func makeSeries(closes []float64) model.Series {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := make(model.Series, len(closes))
	for i, c := range closes {
		s[i] = model.Bar{
			TS:    start.Add(time.Duration(i) * 3 * time.Minute),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return s
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	got, err := SMA(vals, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 4) { // (3+4+5)/3
		t.Errorf("expected SMA=4, got %v", got)
	}

	if _, err := SMA(vals, 6); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := SMA(nil, 1); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData for empty input, got %v", err)
	}
}

func TestConvergence_InsufficientBelowLongPeriod(t *testing.T) {
	for n := 0; n < 60; n++ {
		if _, err := Convergence(flat(n, 0.2), 5, 20, 60); err != ErrInsufficientData {
			t.Fatalf("n=%d: expected ErrInsufficientData, got %v", n, err)
		}
	}
	if _, err := Convergence(flat(60, 0.2), 5, 20, 60); err != nil {
		t.Fatalf("n=60: unexpected error: %v", err)
	}
}

func TestConvergence_FlatSeriesIsZero(t *testing.T) {
	conv, err := Convergence(flat(120, 0.2), 5, 20, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(conv, 0) {
		t.Errorf("expected convergence=0 for flat closes, got %v", conv)
	}
}

func TestConvergence_TrendingSeries(t *testing.T) {
	// Linearly rising closes: short SMA > mid SMA > long SMA, so the
	// spread is short-long. For values 1..100 with windows 5/20/60:
	// SMA5 ends mean 98, SMA60 ends mean 70.5.
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	conv, err := Convergence(vals, 5, 20, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(conv, 98-70.5) {
		t.Errorf("expected convergence=27.5, got %v", conv)
	}
}

func TestBollinger_FlatSeriesZeroWidth(t *testing.T) {
	b, err := Bollinger(flat(20, 0.2), 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(b.Width, 0) {
		t.Errorf("expected zero width, got %v", b.Width)
	}
	if !almostEqual(b.Upper, 0.2) || !almostEqual(b.Lower, 0.2) {
		t.Errorf("expected bands at mean, got upper=%v lower=%v", b.Upper, b.Lower)
	}
}

func TestBollinger_SampleStddev(t *testing.T) {
	// Window {2,4,4,4,5,5,7,9}: mean 5, sample variance 32/7.
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	b, err := Bollinger(vals, 8, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	std := math.Sqrt(32.0 / 7.0)
	if !almostEqual(b.Upper, 5+2*std) {
		t.Errorf("expected upper=%v, got %v", 5+2*std, b.Upper)
	}
	if !almostEqual(b.Width, 4*std) {
		t.Errorf("expected width=%v, got %v", 4*std, b.Width)
	}
}

func TestBollinger_Insufficient(t *testing.T) {
	if _, err := Bollinger(flat(19, 1), 20, 2); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestWidthSeries_Length(t *testing.T) {
	widths, err := WidthSeries(flat(30, 1), 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(widths) != 11 { // 30-20+1 evaluation points
		t.Errorf("expected 11 widths, got %d", len(widths))
	}
}

func TestMinTrailing_ProgressiveMinimum(t *testing.T) {
	// Fewer values than lookback: minimum over what exists.
	got, err := MinTrailing([]float64{3, 1, 2}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 1) {
		t.Errorf("expected min=1, got %v", got)
	}

	// Window excludes older values.
	got, err = MinTrailing([]float64{0.1, 5, 6, 7}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 5) {
		t.Errorf("expected min=5 over trailing 3, got %v", got)
	}

	if _, err := MinTrailing(nil, 3); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData for empty widths, got %v", err)
	}
}

func TestMinTrailing_MonotoneNonIncreasing(t *testing.T) {
	// As progressively lower widths enter the window, the rolling minimum
	// never rises and never exceeds the true minimum of the window.
	widths := []float64{9, 8, 7, 6, 5, 4, 3, 2, 1}
	prev := math.Inf(1)
	for end := 1; end <= len(widths); end++ {
		m, err := MinTrailing(widths[:end], 100)
		if err != nil {
			t.Fatalf("end=%d: unexpected error: %v", end, err)
		}
		if m > prev {
			t.Errorf("end=%d: rolling min rose from %v to %v", end, prev, m)
		}
		if m > widths[end-1] {
			t.Errorf("end=%d: min %v exceeds newest width %v", end, m, widths[end-1])
		}
		prev = m
	}
}

func TestCompute_RequiresMinBars(t *testing.T) {
	p := DefaultParams()
	if p.MinBars() != 100 {
		t.Fatalf("expected MinBars=100, got %d", p.MinBars())
	}
	if _, err := Compute(makeSeries(flat(99, 0.2)), p); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData at 99 bars, got %v", err)
	}
	if _, err := Compute(makeSeries(flat(100, 0.2)), p); err != nil {
		t.Errorf("unexpected error at 100 bars: %v", err)
	}
}

func TestCompute_FlatSeries(t *testing.T) {
	snap, err := Compute(makeSeries(flat(150, 0.2)), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(snap.Convergence, 0) {
		t.Errorf("expected convergence=0, got %v", snap.Convergence)
	}
	if !almostEqual(snap.Bandwidth, 0) {
		t.Errorf("expected bandwidth=0, got %v", snap.Bandwidth)
	}
	if !almostEqual(snap.HistoricalMinWidth, 0) {
		t.Errorf("expected historical min=0, got %v", snap.HistoricalMinWidth)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	closes := make([]float64, 150)
	for i := range closes {
		closes[i] = 0.2 + 0.01*math.Sin(float64(i)/7)
	}
	s := makeSeries(closes)
	a, err := Compute(s, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compute(s, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected identical snapshots, got %+v vs %+v", a, b)
	}
}
