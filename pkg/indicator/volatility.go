package indicator

import "math"

// LogReturnStdDev returns the sample standard deviation of the last window
// log returns of closes (oldest to newest). ok is false when there are not
// enough returns, a close is not positive, or window < 2.
func LogReturnStdDev(closes []float64, window int) (float64, bool) {
	if window < 2 || len(closes) < window+1 {
		return 0, false
	}

	tail := closes[len(closes)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i] <= 0 || tail[i-1] <= 0 {
			return 0, false
		}
		returns = append(returns, math.Log(tail[i]/tail[i-1]))
	}

	mean := Mean(returns)
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss / float64(len(returns)-1)), true
}

func nan() float64 {
	return math.NaN()
}
