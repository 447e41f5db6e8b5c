package indicator

// DefaultATRPeriod is the lookback used for ATR
const DefaultATRPeriod = 14

// atrRatioWindow is the width of the trailing windows averaged for atr_ratio
const atrRatioWindow = 30

// TrueRanges returns max(h-l, |h-pc|, |l-pc|) for every bar after the first.
// Inputs are ordered oldest to newest and must have equal length.
func TrueRanges(highs, lows, closes []float64) []float64 {
	n := minLen(highs, lows, closes)
	if n < 2 {
		return nil
	}
	out := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prevClose := closes[i-1]
		tr := highs[i] - lows[i]
		if v := abs(highs[i] - prevClose); v > tr {
			tr = v
		}
		if v := abs(lows[i] - prevClose); v > tr {
			tr = v
		}
		out = append(out, tr)
	}
	return out
}

// PureATR averages the last period true ranges, or all of them when fewer exist.
// It returns 0 when fewer than two bars are available.
func PureATR(highs, lows, closes []float64, period int) float64 {
	return Mean(Last(TrueRanges(highs, lows, closes), period))
}

// ATR computes the average true range, using techan when there is enough
// history for a full window and the pure implementation otherwise
func ATR(highs, lows, closes []float64, period int) float64 {
	if minLen(highs, lows, closes) >= period+1 {
		if v, err := TechanATR(highs, lows, closes, period); err == nil {
			return v
		}
	}
	return PureATR(highs, lows, closes, period)
}

// ATRRatio compares the current ATR with the mean ATR of trailing 30-bar
// windows ending before each bar from index 30 onward. Returns 1 when that
// mean is undefined or not positive.
func ATRRatio(highs, lows, closes []float64, period int) float64 {
	n := minLen(highs, lows, closes)
	current := ATR(highs, lows, closes, period)
	if n <= atrRatioWindow {
		return 1
	}

	windowed := make([]float64, 0, n-atrRatioWindow)
	for i := atrRatioWindow; i < n; i++ {
		start := i - atrRatioWindow
		windowed = append(windowed, ATR(highs[start:i], lows[start:i], closes[start:i], period))
	}

	avg := Mean(windowed)
	if avg <= 0 {
		return 1
	}
	return current / avg
}

func minLen(a, b, c []float64) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(c) < n {
		n = len(c)
	}
	return n
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
