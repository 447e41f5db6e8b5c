package indicator

// MACD periods
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// EMASeries returns the exponential moving average at every index of values.
// The first period-1 entries are NaN; the average is seeded with the simple
// mean of the first period values.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = nan()
	}
	if period < 1 || len(values) < period {
		return out
	}

	seed := Mean(values[:period])
	out[period-1] = seed

	alpha := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*alpha + prev
		out[i] = prev
	}
	return out
}

// MACDResult holds aligned MACD and signal lines. Entries before each line
// is defined are NaN.
type MACDResult struct {
	MACD   []float64
	Signal []float64
}

// PureMACD computes the MACD line (fast EMA - slow EMA) and its signal line
func PureMACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	return MACDResult{MACD: line, Signal: signalLine(line, slow-1, signal)}
}

// MACD computes the MACD and signal lines, using techan EMAs for the MACD
// line when there is enough history and the pure implementation otherwise
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if len(closes) >= slow {
		if line, err := TechanMACDLine(closes, fast, slow); err == nil {
			return MACDResult{MACD: line, Signal: signalLine(line, slow-1, signal)}
		}
	}
	return PureMACD(closes, fast, slow, signal)
}

// BullishCross reports whether the MACD line crossed above the signal line on
// the latest bar: previous MACD <= previous signal and current MACD > current signal
func (r MACDResult) BullishCross() bool {
	n := len(r.MACD)
	if n < 2 || len(r.Signal) != n {
		return false
	}
	prevMACD, prevSignal := r.MACD[n-2], r.Signal[n-2]
	curMACD, curSignal := r.MACD[n-1], r.Signal[n-1]
	if isNaN(prevMACD) || isNaN(prevSignal) || isNaN(curMACD) || isNaN(curSignal) {
		return false
	}
	return prevMACD <= prevSignal && curMACD > curSignal
}

// signalLine runs an EMA over the defined part of the MACD line, starting at index first
func signalLine(line []float64, first, period int) []float64 {
	out := make([]float64, len(line))
	for i := range out {
		out[i] = nan()
	}
	if first < 0 || first >= len(line) {
		return out
	}
	ema := EMASeries(line[first:], period)
	copy(out[first:], ema)
	return out
}
