package indicator

import "math"

// Bands holds one Bollinger band evaluation.
type Bands struct {
	Upper float64
	Lower float64
	Width float64 // Upper - Lower, the absolute bandwidth
}

// Bollinger computes the bands over the trailing period values ending at the
// last element: SMA ± mult × sample standard deviation.
func Bollinger(values []float64, period int, mult float64) (Bands, error) {
	if period <= 0 || len(values) < period {
		return Bands{}, ErrInsufficientData
	}
	window := values[len(values)-period:]

	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)

	// Sample (Bessel-corrected) standard deviation. A one-bar window has
	// no defined sample deviation; treat it as zero spread.
	var std float64
	if period > 1 {
		var sq float64
		for _, v := range window {
			d := v - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(period-1))
	}

	upper := mean + mult*std
	lower := mean - mult*std
	return Bands{Upper: upper, Lower: lower, Width: upper - lower}, nil
}

// WidthSeries computes the Bollinger bandwidth at every evaluation point the
// series allows: element i is the width of the window ending at values
// index period-1+i. Requires at least period values.
func WidthSeries(values []float64, period int, mult float64) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, ErrInsufficientData
	}
	widths := make([]float64, 0, len(values)-period+1)
	for end := period; end <= len(values); end++ {
		b, err := Bollinger(values[:end], period, mult)
		if err != nil {
			return nil, err
		}
		widths = append(widths, b.Width)
	}
	return widths, nil
}
