package indicator

// SMA computes the simple moving average of the trailing period values
// ending at the last element.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, ErrInsufficientData
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// Convergence computes the spread between the highest and lowest of three
// trailing SMAs ending at the latest value. Low convergence implies the
// averages are tightly clustered. Requires at least long values.
func Convergence(values []float64, short, mid, long int) (float64, error) {
	if len(values) < long {
		return 0, ErrInsufficientData
	}
	maShort, err := SMA(values, short)
	if err != nil {
		return 0, err
	}
	maMid, err := SMA(values, mid)
	if err != nil {
		return 0, err
	}
	maLong, err := SMA(values, long)
	if err != nil {
		return 0, err
	}

	max, min := maShort, maShort
	for _, ma := range []float64{maMid, maLong} {
		if ma > max {
			max = ma
		}
		if ma < min {
			min = ma
		}
	}
	return max - min, nil
}

// MinTrailing returns the minimum of the trailing lookback values, using
// however many are available when fewer exist (progressive minimum,
// min-periods = 1). Only an empty input is an error.
func MinTrailing(values []float64, lookback int) (float64, error) {
	if len(values) == 0 || lookback <= 0 {
		return 0, ErrInsufficientData
	}
	start := len(values) - lookback
	if start < 0 {
		start = 0
	}
	min := values[start]
	for _, v := range values[start+1:] {
		if v < min {
			min = v
		}
	}
	return min, nil
}
