package indicator

// DefaultRSIPeriod is the lookback used for RSI
const DefaultRSIPeriod = 14

// RSI computes the relative strength index over closes ordered oldest to newest.
// Average gain and loss are simple means of the last period price changes.
//
// Returns the neutral value 50 when fewer than period+1 closes are available.
// When there are no losses the result is 100 if there were gains, else 50.
func RSI(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period+1 {
		return 50.0
	}

	changes := closes[len(closes)-period-1:]
	var gains, losses float64
	for i := 1; i < len(changes); i++ {
		diff := changes[i] - changes[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain > 0 {
			return 100.0
		}
		return 50.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
