package indicator

// SMA returns the mean of the last period values. With fewer values than
// period it averages everything available.
func SMA(values []float64, period int) float64 {
	return Mean(Last(values, period))
}
